// Package cli implements the picstore command tree.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "picstore",
		Short: "Photo gallery API with per-field access control",
		Long: `Picstore: a photo gallery REST API with declarative model validation
and per-field, per-role access control loaded from the database at runtime.

Every create, read, update and delete is authorized against a permission
matrix before any SQL runs, and unauthorized fields are redacted from
responses instead of failing the whole request.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./picstore.yaml)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newAdminCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("picstore")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.picstore")
	}

	viper.SetEnvPrefix("PICSTORE")
	viper.AutomaticEnv()
	viper.ReadInConfig() // Ignore error - config file is optional
}
