package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/kselect/internal/utils"
	"github.com/sw33tLie/kselect/pkg/codec"
	"github.com/sw33tLie/kselect/pkg/config"
)

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode the stored selection fields of a record",
	Long:  "Rebuilds the selected companies from raw store field values and checks that the id lists line up with the names.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		delims, err := config.DelimitersFromViper(viper.GetViper())
		if err != nil {
			return err
		}
		c := codec.New(delims)
		if c.Mismatch() {
			utils.Log.Warnf("Name store is encoded with %q but decoded with %q", delims.NameEncode, delims.NameDecode)
		}

		stored := codec.Stored{}
		stored.Names, _ = cmd.Flags().GetString("names")
		stored.BpoIDs = optionalFlag(cmd, "bpo")
		stored.GoogleDriveIDs = optionalFlag(cmd, "drive")
		stored.Structured = optionalFlag(cmd, "structured")

		entries, err := c.DecodeStored(stored)
		if errors.Is(err, codec.ErrMisaligned) {
			utils.Log.Warn(err)
		} else if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		return printEntries(entries, format, "nbg", " ")
	},
}

// optionalFlag returns nil when the flag was not given, so that an absent
// field and an empty field stay distinguishable.
func optionalFlag(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().String("names", "", "Raw value of the name store field")
	decodeCmd.Flags().String("bpo", "", "Raw value of the bpo id store field")
	decodeCmd.Flags().String("drive", "", "Raw value of the google drive id store field")
	decodeCmd.Flags().String("structured", "", "Raw value of the structured store field")
	decodeCmd.Flags().StringP("format", "f", "yaml", "Output format: text, json, yaml")
}
