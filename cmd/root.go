package cmd

import (
	"fmt"
	"os"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/kselect/internal/utils"
	"github.com/sw33tLie/kselect/pkg/config"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kselect",
	Short: "Company multi-select for kintone record forms.",
	Long: `kselect keeps a multi-select of companies from a kintone master app in sync with
the text fields of a record form: it renders the selector pre-marked with the stored
selection and writes the chosen names and ids back on submit.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.kselect.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("baseurl", "", "kintone base URL (Example: https://example.cybozu.com)")
	rootCmd.PersistentFlags().String("token", "", "kintone API token for the master app")
	viper.BindPFlag("kintone.proxy", rootCmd.PersistentFlags().Lookup("proxy"))
	viper.BindPFlag("kintone.baseurl", rootCmd.PersistentFlags().Lookup("baseurl"))
	viper.BindPFlag("kintone.token", rootCmd.PersistentFlags().Lookup("token"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".kselect")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("kselect")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create an empty one.
			home, _ := homedir.Dir()
			if err := writeConfigTemplate(home + "/.kselect.yaml"); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}

// writeConfigTemplate creates an empty config file at path. It uses its own
// viper instance so that flag values such as --token never reach the disk.
func writeConfigTemplate(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")
	return v.SafeWriteConfigAs(path)
}

// loadApp builds the validated application config from flags, env and file.
func loadApp() (config.App, error) {
	return config.FromViper(viper.GetViper())
}
