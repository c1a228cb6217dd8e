package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/antipasta/dispatch/cmd/dispatchctl/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "dispatchctl",
	Short: "Registry-driven API dispatcher CLI",
	Long: `A command-line interface for calling remote API methods through a
declarative method registry.

Any method declared in the registry document can be invoked by name with
key=value arguments; authentication, retry, and pagination are handled by
the dispatch engine.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.dispatchctl/config.yml)")
	rootCmd.PersistentFlags().StringP("endpoint", "e", "", "API endpoint URL")
	rootCmd.PersistentFlags().StringP("registry", "r", "", "method registry file")
	rootCmd.PersistentFlags().String("credentials", "", "credential file (default is $HOME/.dispatchctl/credentials.yml)")
	rootCmd.PersistentFlags().String("output", "table", "output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().Int("retry-max", 0, "maximum retry attempts for transient failures")

	// Bind flags to viper
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("endpoint", rootCmd.PersistentFlags().Lookup("endpoint"))
	_ = viper.BindPFlag("registry", rootCmd.PersistentFlags().Lookup("registry"))
	_ = viper.BindPFlag("credentials", rootCmd.PersistentFlags().Lookup("credentials"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("retry-max", rootCmd.PersistentFlags().Lookup("retry-max"))

	// Add commands
	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewMethodsCommand())
	rootCmd.AddCommand(commands.NewCallCommand())
	rootCmd.AddCommand(commands.NewLoginCommand())
}

func initConfig() {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".dispatchctl")
		if err := os.MkdirAll(configDir, 0750); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating config directory: %v\n", err)
		}

		viper.AddConfigPath(configDir)
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("DISPATCHCTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
