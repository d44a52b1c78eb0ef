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
	answerLimit  int
	answerHybrid bool
	answerJSON   bool
)

var answerCmd = &cobra.Command{
	Use:   "answer [question]",
	Short: "Answer a question from the tenant's evidence",
	Long: `Retrieves the most relevant evidence chunks and generates a grounded
answer with citations back to the source documents. When the retrieved
evidence does not support an answer, the command says so instead of
guessing.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnswer,
}

func init() {
	answerCmd.Flags().IntVarP(&answerLimit, "limit", "n", 0, "maximum number of evidence chunks (0 = configured default)")
	answerCmd.Flags().BoolVar(&answerHybrid, "hybrid", false, "blend keyword matching into retrieval")
	answerCmd.Flags().BoolVar(&answerJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(answerCmd)
}

func runAnswer(cmd *cobra.Command, args []string) error {
	question := args[0]

	if answerService == nil {
		return errors.New("answer service not configured")
	}

	tc, err := tenantContext(domain.CapabilitySearch)
	if err != nil {
		return err
	}

	ctx := context.Background()
	opts := domain.SearchOptions{
		TopK:   answerLimit,
		Hybrid: answerHybrid,
	}

	answer, err := answerService.Answer(ctx, tc, question, opts)
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	if answerJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	return outputAnswer(cmd, answer)
}

func outputAnswer(cmd *cobra.Command, answer *domain.GroundedAnswer) error {
	if !answer.Answered {
		cmd.Println("The indexed evidence does not answer this question.")
		if answer.Answer != "" {
			cmd.Printf("  %s\n", answer.Answer)
		}
		return nil
	}

	cmd.Println(answer.Answer)

	if len(answer.Citations) > 0 {
		cmd.Println()
		cmd.Println("Citations:")
		for i := range answer.Citations {
			c := &answer.Citations[i]

			location := fmt.Sprintf("chunk %d", c.ChunkIndex)
			if c.PageNumber != nil {
				location = fmt.Sprintf("page %d", *c.PageNumber)
			}

			cmd.Printf("  [%d] %s (%s, %.2f)\n", i+1, c.DocumentName, location, c.Relevance)
			if c.Excerpt != "" {
				cmd.Printf("      %s\n", c.Excerpt)
			}
		}
	}

	if answer.Degraded {
		cmd.Println()
		cmd.Println("Note: retrieval ran keyword-only; the embedding provider was unavailable.")
	}

	return nil
}
