package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

var (
	searchLimit     int
	searchThreshold float64
	searchHybrid    bool
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the tenant's indexed evidence",
	Long: `Performs semantic search across the tenant's indexed documents.
With --hybrid the vector score is blended with keyword (BM25) matching.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (0 = configured default)")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "drop results scoring below this")
	searchCmd.Flags().BoolVar(&searchHybrid, "hybrid", false, "blend keyword matching into the score")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errors.New("search service not configured")
	}

	tc, err := tenantContext(domain.CapabilitySearch)
	if err != nil {
		return err
	}

	ctx := context.Background()
	opts := domain.SearchOptions{
		TopK:           searchLimit,
		ScoreThreshold: searchThreshold,
		Hybrid:         searchHybrid,
	}

	resp, err := searchService.Search(ctx, tc, query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, resp)
	}

	return outputSearchTable(cmd, resp)
}

func outputSearchJSON(cmd *cobra.Command, resp *domain.SearchResponse) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, resp *domain.SearchResponse) error {
	if resp.Failed {
		cmd.Printf("Search failed: %s\n", resp.FailureReason)
		return nil
	}

	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range resp.Results {
		r := &resp.Results[i]

		location := fmt.Sprintf("chunk %d", r.ChunkIndex)
		if r.PageNumber != nil {
			location = fmt.Sprintf("page %d", *r.PageNumber)
		}

		cmd.Printf("  [%d] %s (%s, %.2f)\n", i+1, r.DocumentName, location, r.Score)
		if r.Excerpt != "" {
			cmd.Printf("      %s\n", r.Excerpt)
		}
		cmd.Println()
	}

	if resp.Degraded {
		cmd.Println("Note: the embedding provider was unavailable; results are keyword-only.")
	}

	return nil
}
