package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/kselect/pkg/storage"
)

func openExistingDB(cmd *cobra.Command) (*storage.DB, error) {
	dbPath, _ := cmd.Flags().GetString("dbpath")
	if dbPath == "" {
		dbPath = "kselect.sqlite"
	}
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database not found: %s", dbPath)
	}
	return storage.Open(dbPath)
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List records saved by the local form server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		db, err := openExistingDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		records, err := db.ListRecords(context.Background(), limit)
		if err != nil {
			return err
		}
		for _, r := range records {
			fmt.Printf("#%d  %s  companies=%s\n", r.ID, r.UpdatedAt.Format("2006-01-02 15:04:05"), strings.Join(r.Companies, ", "))
			codes := make([]string, 0, len(r.Fields))
			for code := range r.Fields {
				codes = append(codes, code)
			}
			sort.Strings(codes)
			for _, code := range codes {
				fmt.Printf("    %s = %q\n", code, r.Fields[code])
			}
		}
		return nil
	},
}

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Show recent selection changes (default 50)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		db, err := openExistingDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		changes, err := db.ListRecentChanges(context.Background(), limit)
		if err != nil {
			return err
		}
		for _, c := range changes {
			ts := c.OccurredAt.Format("2006-01-02 15:04:05")
			fmt.Printf("%s  %-7s  #%d  %s\n", ts, c.ChangeType, c.RecordID, c.Company)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.Flags().String("dbpath", "", "Path to SQLite DB file (default: kselect.sqlite in CWD)")
	recordsCmd.Flags().Int("limit", 50, "Number of records to show")

	rootCmd.AddCommand(changesCmd)
	changesCmd.Flags().String("dbpath", "", "Path to SQLite DB file (default: kselect.sqlite in CWD)")
	changesCmd.Flags().Int("limit", 50, "Number of recent changes to show")
}
