package admin

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloo-solutions/askdesk/internal/cli"
	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/cloo-solutions/askdesk/internal/service"
	"github.com/spf13/cobra"
)

func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Upload a document and wait for it to be indexed",
		Long: "Upload a document as an administrator, run ingestion in this process and report the outcome.\n" +
			"The run can be interrupted with Ctrl-C; the document is then recorded as failed.",
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().String("name", "", "Display name (defaults to the file name)")
	cmd.Flags().String("category", "", "Document category")
	cmd.Flags().String("tier", string(domain.AccessTierGeneral), "Access tier (general, departmental, management, executive, hr, it, finance, admin)")
	cmd.Flags().Duration("timeout", 30*time.Minute, "Give up waiting after this long")
	cli.AddOutputFlag(cmd)

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	name, _ := cmd.Flags().GetString("name")
	category, _ := cmd.Flags().GetString("category")
	tier, _ := cmd.Flags().GetString("tier")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	format, err := cli.OutputFormat(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, logger, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()
	defer a.shutdown(shutdownTimeout)

	fileName := filepath.Base(path)
	uploaded, err := a.documents.Upload(ctx, service.UploadInput{
		Requester:   cliRequester,
		FileName:    fileName,
		DisplayName: name,
		Category:    category,
		AccessTier:  tier,
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName))),
		Content:     content,
	})
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	if uploaded.Task == nil {
		return fmt.Errorf("document %s stored but ingestion could not be started", uploaded.Document.ID)
	}

	result, err := uploaded.Task.Wait(ctx)
	if err != nil {
		uploaded.Task.Cancel()
		return fmt.Errorf("ingestion of %s did not complete: %w", uploaded.Document.ID, err)
	}

	summary := map[string]any{
		"document_id":    result.DocumentID,
		"status":         result.Status,
		"chunk_count":    result.ChunkCount,
		"skipped_chunks": result.SkippedChunks,
		"error":          result.Error,
	}
	if err := cli.Render(cmd.OutOrStdout(), format, summary, func(w io.Writer) {
		fmt.Fprintf(w, "Document %s: %s\n", result.DocumentID, result.Status)
		if result.Status == domain.DocumentStatusIndexed {
			fmt.Fprintf(w, "  chunks indexed: %d (skipped: %d)\n", result.ChunkCount, result.SkippedChunks)
		} else if result.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", result.Error)
		}
	}); err != nil {
		return err
	}

	if result.Status != domain.DocumentStatusIndexed {
		return fmt.Errorf("ingestion failed")
	}
	return nil
}
