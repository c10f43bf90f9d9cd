package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

type Source struct {
	DocumentID string  `json:"document_id"`
	Index      int     `json:"index"`
	Text       string  `json:"text"`
	Score      float32 `json:"score"`
}

type QueryResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

func QueryCmd() *cobra.Command {
	var topK int
	var showSources bool

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Ask a question against the indexed documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			question := strings.Join(args, " ")
			return runQuery(cmd.Context(), api, cmd.OutOrStdout(), question, topK, showSources, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to retrieve (server default when 0)")
	cmd.Flags().BoolVar(&showSources, "sources", false, "Print the retrieved chunks")

	return cmd
}

func runQuery(ctx context.Context, api *APIClient, w io.Writer, question string, topK int, showSources, outputJSON bool) error {
	body := map[string]interface{}{"question": question}
	if topK > 0 {
		body["top_k"] = topK
	}

	resp, err := api.Post(ctx, apiPrefix+"/query", body)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	var result QueryResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse answer: %w", err)
	}

	if outputJSON {
		return printJSON(w, result)
	}

	fmt.Fprintln(w, result.Answer)
	if showSources && len(result.Sources) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "--- Sources ---")
		for _, s := range result.Sources {
			fmt.Fprintf(w, "[%s #%d, %.3f] %s\n", s.DocumentID, s.Index, s.Score, oneLine(s.Text, 120))
		}
	}
	return nil
}

func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
