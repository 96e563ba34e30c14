package main

import (
	"context"
	"github.com/beldeveloper/ecomet/internal/app/config"
	"github.com/beldeveloper/ecomet/internal/app/logging"
	"github.com/spf13/cobra"
	"os"
	"os/signal"
	"syscall"
)

var logger = logging.GetLogger("cli")

var envFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ecomet",
	Short: "e-Comet tooling: GitHub scraper, compose checker and dependency waiter.",
	Long: `e-Comet tooling. It scrapes the most starred GitHub repositories into ClickHouse, ` +
		`checks the compose files of the deployment stacks and waits for their dependencies.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.EnvFile, "dotenv file with the settings")
	rootCmd.AddCommand(scrapeCmd, composeCmd, waitCmd)
}

// loadSettings reads the settings and configures the logging.
func loadSettings() (config.Settings, error) {
	s, err := config.Load(envFile)
	if err != nil {
		return s, err
	}
	return s, logging.Setup(s.Logging)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
