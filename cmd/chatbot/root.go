package main

import (
	"github.com/spf13/cobra"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/config"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/version"
)

var (
	envName    string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:           "chatbot",
	Short:         "Groupware assistant answering from records and policy documents",
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envName, "env", config.GetEnv(), "environment name, selects config/<env>.yaml")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "explicit config file path (overrides --env)")

	rootCmd.AddCommand(serveCmd, askCmd, chunksCmd)
}

// loadConfig reads the config selected by --config or --env.
func loadConfig() (config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load(envName)
}
