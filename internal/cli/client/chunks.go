package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/spf13/cobra"
)

type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

func ChunksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chunks <document-id>",
		Short: "List the stored chunks of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runChunks(cmd.Context(), api, cmd.OutOrStdout(), args[0], outputJSON)
		},
	}
}

func runChunks(ctx context.Context, api *APIClient, w io.Writer, documentID string, outputJSON bool) error {
	resp, err := api.Get(ctx, apiPrefix+"/chunks/"+url.PathEscape(documentID))
	if err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}

	var chunks []Chunk
	if err := json.Unmarshal(resp.Data, &chunks); err != nil {
		return fmt.Errorf("failed to parse chunks: %w", err)
	}

	if outputJSON {
		return printJSON(w, chunks)
	}

	if len(chunks) == 0 {
		fmt.Fprintln(w, "No chunks stored.")
		return nil
	}
	for _, c := range chunks {
		fmt.Fprintf(w, "--- chunk %d ---\n%s\n", c.Index, c.Text)
	}
	return nil
}
