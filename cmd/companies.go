package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/kselect/pkg/company"
	"github.com/sw33tLie/kselect/pkg/kintone"
	"gopkg.in/yaml.v3"
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "Print the company master list",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		client, err := kintone.NewClient(app, nil)
		if err != nil {
			return err
		}
		entries, err := client.FetchCompanies(context.Background())
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		outputFlags, _ := cmd.Flags().GetString("output")
		delimiter, _ := cmd.Flags().GetString("delimiter")
		return printEntries(entries, format, outputFlags, delimiter)
	},
}

func printEntries(entries []company.Entry, format, outputFlags, delimiter string) error {
	switch format {
	case "text":
		return company.PrintEntries(os.Stdout, entries, outputFlags, delimiter)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		out, err := yaml.Marshal(entries)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	default:
		return fmt.Errorf("unknown format %q (text, json, yaml)", format)
	}
}

func init() {
	rootCmd.AddCommand(companiesCmd)
	companiesCmd.Flags().StringP("format", "f", "text", "Output format: text, json, yaml")
	companiesCmd.Flags().StringP("output", "o", "nbg", "Text columns: n (name), b (bpo id), g (google drive id)")
	companiesCmd.Flags().StringP("delimiter", "d", " ", "Text column delimiter")
}
