package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree() *cobra.Command {
	root := &cobra.Command{Use: "askdeskd"}
	AddHelpJSONFlag(root)

	ingest := &cobra.Command{Use: "ingest <file>", Short: "Ingest a document", Run: func(*cobra.Command, []string) {}}
	ingest.Flags().String("tier", "general", "Access tier")
	ingest.Flags().String("name", "", "Display name")
	_ = ingest.MarkFlagRequired("name")
	AddOutputFlag(ingest)

	hidden := &cobra.Command{Use: "debug", Hidden: true, Run: func(*cobra.Command, []string) {}}
	root.AddCommand(ingest, hidden)
	return root
}

func TestGenerateSchema_SkipsHiddenCommands(t *testing.T) {
	schema := GenerateSchema(newTestTree())

	require.Len(t, schema.Subcommands, 1)
	assert.Equal(t, "ingest", schema.Subcommands[0].Name)
}

func TestWriteHelpJSON_TargetsSubcommand(t *testing.T) {
	var buf bytes.Buffer

	handled, err := WriteHelpJSON(&buf, newTestTree(), []string{"ingest", "--help-json"})
	require.NoError(t, err)
	require.True(t, handled)

	var schema CommandSchema
	require.NoError(t, json.Unmarshal(buf.Bytes(), &schema))
	assert.Equal(t, "ingest", schema.Name)

	flags := map[string]FlagSchema{}
	for _, f := range schema.Flags {
		flags[f.Name] = f
	}
	assert.True(t, flags["name"].Required)
	assert.False(t, flags["tier"].Required)
	assert.Equal(t, "general", flags["tier"].Default)
	assert.Equal(t, "o", flags["output"].Shorthand)
}

func TestWriteHelpJSON_NotRequested(t *testing.T) {
	var buf bytes.Buffer

	handled, err := WriteHelpJSON(&buf, newTestTree(), []string{"ingest", "handbook.pdf"})

	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, buf.String())
}

func TestOutputFormat(t *testing.T) {
	cmd := &cobra.Command{Use: "ask"}
	AddOutputFlag(cmd)

	f, err := OutputFormat(cmd)
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	require.NoError(t, cmd.Flags().Set("output", "YAML"))
	f, err = OutputFormat(cmd)
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	require.NoError(t, cmd.Flags().Set("output", "xml"))
	_, err = OutputFormat(cmd)
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	v := map[string]any{"status": "indexed", "chunks": 3}

	var jsonBuf, yamlBuf, textBuf bytes.Buffer
	require.NoError(t, Render(&jsonBuf, FormatJSON, v, nil))
	require.NoError(t, Render(&yamlBuf, FormatYAML, v, nil))
	require.NoError(t, Render(&textBuf, FormatText, v, func(w io.Writer) { _, _ = w.Write([]byte("indexed")) }))

	assert.JSONEq(t, `{"status":"indexed","chunks":3}`, jsonBuf.String())
	assert.Equal(t, "chunks: 3\nstatus: indexed\n", yamlBuf.String())
	assert.Equal(t, "indexed", textBuf.String())
}
