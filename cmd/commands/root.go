package commands

// Root command for Cobra CLI
// Defines the main command structure of the application
// Registers all subcommands (bot, watch)

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vybe-pulse",
	Short: "Vybe Pulse - Telegram bot for tracking Solana wallet activity and whale alerts",
	Long: `Vybe Pulse is a Go-based Telegram bot that polls the Vybe Network API to deliver
wallet transfer notifications, whale alerts, token stats, and holder analytics.`,
	Version: "1.0.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(botCmd)
	rootCmd.AddCommand(watchCmd)
}
