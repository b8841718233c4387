package admin

import (
	"fmt"
	"io"
	"strings"

	"github.com/cloo-solutions/askdesk/internal/cli"
	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/cloo-solutions/askdesk/internal/service"
	"github.com/spf13/cobra"
)

func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question as a given employee",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	cmd.Flags().String("as", "askdesk-cli", "Requester ID recorded with the query")
	cmd.Flags().String("role", domain.RoleEmployee, "Requester role")
	cmd.Flags().String("department", "", "Requester department")
	cli.AddOutputFlag(cmd)

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	requesterID, _ := cmd.Flags().GetString("as")
	role, _ := cmd.Flags().GetString("role")
	department, _ := cmd.Flags().GetString("department")
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

	answer, err := a.queries.Resolve(cmd.Context(), service.QueryInput{
		Text:        strings.Join(args, " "),
		RequesterID: requesterID,
		Role:        strings.ToLower(role),
		Department:  department,
	})
	if err != nil {
		return err
	}

	return cli.Render(cmd.OutOrStdout(), format, answer, func(w io.Writer) {
		fmt.Fprintln(w, answer.Text)
		fmt.Fprintf(w, "\nSource: %s (confidence %.2f)\n", answer.Source, answer.Confidence)
		for i, c := range answer.Citations {
			fmt.Fprintf(w, "  [%d] %s (relevance %.2f)\n", i+1, c.DocumentName, c.RelevanceScore)
		}
	})
}
