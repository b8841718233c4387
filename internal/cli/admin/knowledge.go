package admin

import (
	"fmt"
	"io"
	"os"

	"github.com/cloo-solutions/askdesk/internal/cli"
	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/cloo-solutions/askdesk/internal/service"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func KnowledgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "knowledge",
		Short: "Manage curated knowledge items",
		Long:  "Import and list the curated question/answer items consulted before any document search",
	}

	cmd.AddCommand(KnowledgeImportCmd())
	cmd.AddCommand(KnowledgeListCmd())

	return cmd
}

// knowledgeFile is the YAML layout accepted by knowledge import.
type knowledgeFile struct {
	Items []knowledgeEntry `yaml:"items"`
}

type knowledgeEntry struct {
	Question   string   `yaml:"question"`
	Answer     string   `yaml:"answer"`
	Category   string   `yaml:"category"`
	AccessTier string   `yaml:"access_tier"`
	Keywords   []string `yaml:"keywords"`
	Priority   int      `yaml:"priority"`
	Source     string   `yaml:"source"`
}

func parseKnowledgeFile(data []byte, createdBy string) ([]service.CreateKnowledgeInput, error) {
	var file knowledgeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid knowledge file: %w", err)
	}
	if len(file.Items) == 0 {
		return nil, fmt.Errorf("knowledge file contains no items")
	}

	return lo.Map(file.Items, func(e knowledgeEntry, _ int) service.CreateKnowledgeInput {
		return service.CreateKnowledgeInput{
			Question:   e.Question,
			Answer:     e.Answer,
			Category:   e.Category,
			AccessTier: e.AccessTier,
			Keywords:   e.Keywords,
			Priority:   e.Priority,
			Source:     e.Source,
			CreatedBy:  createdBy,
		}
	}), nil
}

func KnowledgeImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import knowledge items from a YAML file",
		Long:  "Import knowledge items from a YAML file with a top-level \"items\" list. Nothing is stored if any item is invalid.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			inputs, err := parseKnowledgeFile(data, cliRequester.ID)
			if err != nil {
				return err
			}

			cfg, logger, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, logger, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.knowledge.Import(cmd.Context(), inputs)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			fmt.Printf("Imported %d knowledge items\n", len(items))
			return nil
		},
	}

	return cmd
}

func KnowledgeListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active knowledge items",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.OutputFormat(cmd)
			if err != nil {
				return err
			}

			cfg, logger, err := loadConfigAndLogger()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, logger, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.knowledge.List(cmd.Context(), service.ListKnowledgeInput{
				Requester: cliRequester,
				Cursor:    cursor,
				Limit:     limit,
			})
			if err != nil {
				return fmt.Errorf("failed to list knowledge items: %w", err)
			}
			return printKnowledgeList(cmd.OutOrStdout(), format, result)
		},
	}

	cli.AddOutputFlag(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func printKnowledgeList(w io.Writer, format cli.Format, result *service.ListKnowledgeOutput) error {
	summary := map[string]any{
		"items": lo.Map(result.Items, func(k *domain.KnowledgeItem, _ int) map[string]any {
			return map[string]any{
				"id":          k.ID,
				"question":    k.Question,
				"category":    k.Category,
				"access_tier": k.AccessTier,
				"priority":    k.Priority,
				"updated_at":  k.UpdatedAt,
			}
		}),
		"cursor":   result.Cursor,
		"has_more": result.HasMore,
	}

	return cli.Render(w, format, summary, func(w io.Writer) {
		if len(result.Items) == 0 {
			fmt.Fprintln(w, "No knowledge items found")
			return
		}
		fmt.Fprintln(w, "Knowledge items:")
		for _, k := range result.Items {
			fmt.Fprintf(w, "  %s [%s, priority %d]: %s\n", k.ID, k.AccessTier, k.Priority, k.Question)
		}
		if result.HasMore && result.Cursor != "" {
			fmt.Fprintf(w, "\nMore results available. Use --cursor %s\n", result.Cursor)
		}
	})
}
