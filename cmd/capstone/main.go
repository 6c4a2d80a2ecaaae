package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dshills/capstone-search/internal/config"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	v       *viper.Viper
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "capstone",
	Short: "Hybrid search over academic capstone documents",
	Long: `capstone indexes extracted capstone documents into SQLite and answers
queries by fusing full-text matches with embedding similarity. The serve
command exposes search, summaries and ingestion to MCP clients over stdio.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if envFile != "" {
			return config.LoadDotEnv(envFile)
		}
		return config.LoadDotEnv()
	},
}

func init() {
	var err error
	v, err = config.NewViper()
	if err != nil {
		panic(err)
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&envFile, "env-file", "", "path to a .env file (default ./.env when present)")
	flags.String("db", config.DefaultDBPath, "path to the SQLite database")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("embedding-provider", "auto", "embedding provider (auto, openai, jina, local)")
	flags.String("summary-provider", "auto", "summary provider (auto, openai, ollama)")

	bindings := map[string]string{
		config.KeyDBPath:            "db",
		config.KeyLogLevel:          "log-level",
		config.KeyLogFormat:         "log-format",
		config.KeyEmbeddingProvider: "embedding-provider",
		config.KeySummaryProvider:   "summary-provider",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
