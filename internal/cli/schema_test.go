package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTree() *cobra.Command {
	root := &cobra.Command{Use: "ragdoc", Short: "root"}
	root.PersistentFlags().Bool("output", false, "Output as JSON")
	AddHelpJSONFlag(root)

	docs := &cobra.Command{Use: "documents", Aliases: []string{"docs"}, Short: "List documents", Run: func(*cobra.Command, []string) {}}
	docs.Flags().Int("limit", 0, "Maximum documents")

	get := &cobra.Command{Use: "get <document-id>", Short: "Get one", Run: func(*cobra.Command, []string) {}}
	get.Flags().String("format", "text", "Format")
	_ = get.MarkFlagRequired("format")
	docs.AddCommand(get)

	hidden := &cobra.Command{Use: "secret", Hidden: true, Run: func(*cobra.Command, []string) {}}

	root.AddCommand(docs, hidden)
	return root
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema(testTree())

	assert.Equal(t, "ragdoc", schema.Name)
	require.Len(t, schema.Subcommands, 1)

	docs := schema.Subcommands[0]
	assert.Equal(t, "documents", docs.Name)
	assert.Equal(t, []string{"docs"}, docs.Aliases)

	var names []string
	for _, f := range docs.Flags {
		names = append(names, f.Name)
		assert.NotEqual(t, helpJSONFlag, f.Name)
	}
	assert.ElementsMatch(t, []string{"limit", "output"}, names)

	require.Len(t, docs.Subcommands, 1)
	get := docs.Subcommands[0]
	require.NotEmpty(t, get.Flags)
	for _, f := range get.Flags {
		if f.Name == "format" {
			assert.True(t, f.Required)
			assert.False(t, f.Inherited)
		}
		if f.Name == "output" {
			assert.True(t, f.Inherited)
		}
	}
}

func TestHelpJSONTarget(t *testing.T) {
	root := testTree()

	target, ok := helpJSONTarget(root, []string{"docs", "get", "--help-json"})
	require.True(t, ok)
	assert.Equal(t, "get", target.Name())

	target, ok = helpJSONTarget(root, []string{"--help-json"})
	require.True(t, ok)
	assert.Equal(t, "ragdoc", target.Name())

	_, ok = helpJSONTarget(root, []string{"documents", "--limit", "3"})
	assert.False(t, ok)
}

func TestWriteSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSchema(&buf, testTree()))

	var decoded CommandSchema
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "ragdoc", decoded.Name)
}
