package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type UploadResult struct {
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
}

func UploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Upload a PDF and index it",
		Long:  "Uploads a PDF. The server extracts, chunks and indexes it before responding.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runUpload(cmd.Context(), api, cmd.OutOrStdout(), args[0], outputJSON)
		},
	}
}

func runUpload(ctx context.Context, api *APIClient, w io.Writer, filePath string, outputJSON bool) error {
	resp, err := api.UploadFile(ctx, apiPrefix+"/upload", filePath)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	var result UploadResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse upload result: %w", err)
	}

	if outputJSON {
		return printJSON(w, result)
	}

	fmt.Fprintf(w, "Document: %s\n", result.DocumentID)
	fmt.Fprintf(w, "Chunks: %d\n", result.Chunks)
	return nil
}
