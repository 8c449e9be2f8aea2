package main

import (
	"os"

	"dcc/cmd/dcc/ask"
	"dcc/cmd/dcc/history"
	"dcc/cmd/dcc/replay"
	"dcc/cmd/dcc/serve"
	"dcc/internal/logger"

	"github.com/spf13/cobra"
)

func main() {
	logger.Init()
	rootCmd := &cobra.Command{
		Use:          "dcc",
		Short:        "dcc talks to the decision desk review copilot",
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(ask.Cmd)
	rootCmd.AddCommand(replay.Cmd)
	rootCmd.AddCommand(serve.Cmd)
	rootCmd.AddCommand(history.Cmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
