package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evidentia-labs/evidentia/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage the tenant's evidence documents",
	Long:  `List, inspect, or delete documents in the tenant's evidence store.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tenant's documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its index entries",
	Long: `Removes a document from the evidence store together with its stored
bytes, chunks and vector index entries.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentDelete,
}

func init() {
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	tc, err := tenantContext(domain.CapabilitySearch)
	if err != nil {
		return err
	}

	overviews, err := documentService.List(context.Background(), tc)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(overviews) == 0 {
		cmd.Printf("No documents found for tenant: %s\n", tc.Tenant())
		return nil
	}

	cmd.Printf("Documents for tenant %s:\n\n", tc.Tenant())
	for i := range overviews {
		doc := &overviews[i].Document
		cmd.Printf("  %s\n", doc.ID)
		cmd.Printf("    Filename: %s\n", doc.Filename)
		cmd.Printf("    Type:     %s (%d bytes)\n", doc.MIMEType, doc.ByteSize)
		cmd.Printf("    Uploaded: %s\n", doc.UploadedAt.Format("2006-01-02 15:04:05"))
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(overviews))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	tc, err := tenantContext(domain.CapabilitySearch)
	if err != nil {
		return err
	}

	docID := args[0]

	doc, err := documentService.Get(context.Background(), tc, docID)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Filename:  %s\n", doc.Filename)
	cmd.Printf("  Type:      %s\n", doc.MIMEType)
	cmd.Printf("  Size:      %d bytes\n", doc.ByteSize)
	cmd.Printf("  Checksum:  %s\n", doc.Checksum)
	cmd.Printf("  Uploaded:  %s\n", doc.UploadedAt.Format("2006-01-02 15:04:05"))

	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	tc, err := tenantContext(domain.CapabilityAdmin)
	if err != nil {
		return err
	}

	docID := args[0]

	if err := documentService.Delete(context.Background(), tc, docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %s deleted.\n", docID)
	return nil
}
