package cmd

import (
	"bytes"
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/kselect/pkg/codec"
	"github.com/sw33tLie/kselect/pkg/kintone"
	"github.com/sw33tLie/kselect/pkg/selector"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the company selector as an HTML fragment",
	Long:  "Fetches the master list and prints the selector markup, pre-selecting the companies of --stored (the raw value of the store field).",
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

		stored, _ := cmd.Flags().GetString("stored")
		names := codec.New(app.Delimiters).DecodeNames(stored)

		container := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
		selector.New(app.Form).Render(container, entries, names)

		var buf bytes.Buffer
		for c := container.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return err
			}
			buf.WriteByte('\n')
		}
		fmt.Print(buf.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringP("stored", "s", "", "Stored value of the selection field")
}
