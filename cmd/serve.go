package cmd

import (
	"github.com/spf13/cobra"
	"github.com/sw33tLie/kselect/internal/server"
	"github.com/sw33tLie/kselect/pkg/form"
	"github.com/sw33tLie/kselect/pkg/kintone"
	"github.com/sw33tLie/kselect/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve record forms with the company selector mounted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}

		dbPath, _ := cmd.Flags().GetString("dbpath")
		addr, _ := cmd.Flags().GetString("addr")
		user, _ := cmd.Flags().GetString("user")
		pass, _ := cmd.Flags().GetString("pass")

		db, err := storage.OpenExclusive(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		client, err := kintone.NewClient(app, nil)
		if err != nil {
			return err
		}
		rt := form.NewRuntime()
		form.Register(rt, form.NewHandlers(app, client))

		return server.New(db, rt, app, user, pass).Start(addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	serveCmd.Flags().String("dbpath", "kselect.sqlite", "Path to SQLite DB file")
	serveCmd.Flags().String("user", "", "Basic auth username")
	serveCmd.Flags().String("pass", "", "Basic auth password")
}
