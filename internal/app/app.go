package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "crm-sync",
	Short: "CRM sync worker",
	Long:  "Incrementally synchronizes organizations, people and meetings from a CRM portal into a stream of analytics actions",
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("hubspot.api_url", "https://api.hubapi.com", "CRM API base URL")
	rootCmd.PersistentFlags().String("hubspot.client_id", "", "OAuth app client ID")
	rootCmd.PersistentFlags().String("hubspot.client_secret", "", "OAuth app client secret")
	rootCmd.PersistentFlags().String("nats.url", "nats://127.0.0.1:4222", "NATS server URL for the action sink")
	rootCmd.PersistentFlags().String("db.path", "data/crm-sync.db", "Path to the account database")

	viper.BindPFlag("hubspot.api_url", rootCmd.PersistentFlags().Lookup("hubspot.api_url"))
	viper.BindPFlag("hubspot.client_id", rootCmd.PersistentFlags().Lookup("hubspot.client_id"))
	viper.BindPFlag("hubspot.client_secret", rootCmd.PersistentFlags().Lookup("hubspot.client_secret"))
	viper.BindPFlag("nats.url", rootCmd.PersistentFlags().Lookup("nats.url"))
	viper.BindPFlag("db.path", rootCmd.PersistentFlags().Lookup("db.path"))
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("CRMSYNC")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
