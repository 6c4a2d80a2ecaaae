package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/capstone-search/internal/indexer"
	"github.com/dshills/capstone-search/internal/mcp"
)

var (
	ingestWorkers int
	searchK       int
	summarizeK    int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "Ingest a capstone JSON document or a directory of them",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed capstones",
	Long: `Runs hybrid retrieval and prints one result card per capstone as JSON.
Documents that match the query lexically rank slightly ahead of equally
similar ones.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <query>",
	Short: "Summarize the passages most relevant to a query",
	Args:  cobra.ExactArgs(1),
	RunE:  runSummarize,
}

func init() {
	ingestCmd.Flags().IntVarP(&ingestWorkers, "workers", "w", 0, "parallel document workers (default from config)")
	searchCmd.Flags().IntVarP(&searchK, "k", "k", 0, "number of chunks to retrieve (default from config)")
	summarizeCmd.Flags().IntVarP(&summarizeK, "k", "k", 0, "number of chunks to retrieve (default from config)")

	rootCmd.AddCommand(ingestCmd, searchCmd, summarizeCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	workers := ingestWorkers
	if workers <= 0 {
		workers = a.cfg.IngestWorkers
	}

	stats, err := a.indexer.IngestPath(cmd.Context(), path, &indexer.Config{Workers: workers})
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return writeJSON(cmd, stats)
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	query := args[0]
	k := resolveK(searchK, a.cfg.DefaultK)

	results, err := a.engine.Retrieve(cmd.Context(), query, k, a.cfg.FetchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	cards, err := a.cards.Group(cmd.Context(), results)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	return writeJSON(cmd, map[string]interface{}{
		"query":   query,
		"results": cards,
	})
}

func runSummarize(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	sum, err := a.summarizer()
	if err != nil {
		return err
	}

	summary, err := sum.Summarize(cmd.Context(), args[0], resolveK(summarizeK, a.cfg.DefaultK))
	if err != nil {
		return fmt.Errorf("summarize failed: %w", err)
	}
	return writeJSON(cmd, summary)
}

// resolveK applies the configured default and the MCP bounds to a -k flag
func resolveK(flagK, defaultK int) int {
	k := flagK
	if k <= 0 {
		k = defaultK
	}
	if k <= 0 {
		k = mcp.DefaultK
	}
	return min(k, mcp.MaxK)
}

// writeJSON prints v as indented JSON on stdout
func writeJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
