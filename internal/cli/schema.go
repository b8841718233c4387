// Package cli provides shared helpers for the askdeskd command tree.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const helpJSONFlag = "help-json"

// FlagSchema describes one command flag.
type FlagSchema struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// CommandSchema describes a command and its visible subcommands, so scripts
// can discover the CLI without scraping help text.
type CommandSchema struct {
	Name        string          `json:"name"`
	Use         string          `json:"use,omitempty"`
	Description string          `json:"description,omitempty"`
	Long        string          `json:"long,omitempty"`
	Flags       []FlagSchema    `json:"flags,omitempty"`
	Subcommands []CommandSchema `json:"subcommands,omitempty"`
}

func GenerateSchema(cmd *cobra.Command) CommandSchema {
	visible := lo.Filter(cmd.Commands(), func(sub *cobra.Command, _ int) bool {
		return sub.Name() != "help" && !sub.Hidden
	})

	return CommandSchema{
		Name:        cmd.Name(),
		Use:         cmd.Use,
		Description: cmd.Short,
		Long:        cmd.Long,
		Flags:       flagSchemas(cmd),
		Subcommands: lo.Map(visible, func(sub *cobra.Command, _ int) CommandSchema {
			return GenerateSchema(sub)
		}),
	}
}

func flagSchemas(cmd *cobra.Command) []FlagSchema {
	var flags []FlagSchema
	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if f.Name == helpJSONFlag || f.Name == "help" {
			return
		}
		_, required := f.Annotations[cobra.BashCompOneRequiredFlag]
		flags = append(flags, FlagSchema{
			Name:        f.Name,
			Shorthand:   f.Shorthand,
			Type:        f.Value.Type(),
			Default:     f.DefValue,
			Description: f.Usage,
			Required:    required,
		})
	})
	return flags
}

// AddHelpJSONFlag registers --help-json on cmd and all its children.
func AddHelpJSONFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool(helpJSONFlag, false, "Output command schema as JSON")
}

// WriteHelpJSON writes the schema of the command addressed by args when args
// contain --help-json. It reports whether it did.
func WriteHelpJSON(w io.Writer, root *cobra.Command, args []string) (bool, error) {
	idx := lo.IndexOf(args, "--"+helpJSONFlag)
	if idx < 0 {
		return false, nil
	}

	out, err := json.MarshalIndent(GenerateSchema(findTargetCommand(root, args[:idx])), "", "  ")
	if err != nil {
		return true, err
	}
	_, err = fmt.Fprintln(w, string(out))
	return true, err
}

// CheckHelpJSON handles --help-json before cobra validates positional
// arguments, exiting once the schema is printed.
func CheckHelpJSON(root *cobra.Command) {
	handled, err := WriteHelpJSON(os.Stdout, root, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
		os.Exit(1)
	}
	if handled {
		os.Exit(0)
	}
}

func findTargetCommand(cmd *cobra.Command, args []string) *cobra.Command {
	if len(args) == 0 {
		return cmd
	}
	for _, sub := range cmd.Commands() {
		if sub.Name() == args[0] || sub.HasAlias(args[0]) {
			return findTargetCommand(sub, args[1:])
		}
	}
	return cmd
}
