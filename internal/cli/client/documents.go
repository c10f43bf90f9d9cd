package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type Document struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	SourceURI  string `json:"source_uri"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type DocumentList struct {
	Documents []Document `json:"documents"`
	Cursor    string     `json:"cursor,omitempty"`
	HasMore   bool       `json:"has_more"`
}

type ReindexJob struct {
	JobID      string `json:"job_id"`
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

// DocumentsCmd lists documents and has get and reindex subcommands.
func DocumentsCmd() *cobra.Command {
	var limit int
	var cursor string

	cmd := &cobra.Command{
		Use:     "documents",
		Short:   "List uploaded documents",
		Aliases: []string{"docs"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runListDocuments(cmd.Context(), api, cmd.OutOrStdout(), limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum documents to return")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Cursor from a previous page")

	cmd.AddCommand(documentGetCmd())
	cmd.AddCommand(documentReindexCmd())

	return cmd
}

func documentGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <document-id>",
		Short: "Show a document's ingestion status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runGetDocument(cmd.Context(), api, cmd.OutOrStdout(), args[0], outputJSON)
		},
	}
}

func documentReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex <document-id>",
		Short: "Queue a rebuild of a document's index entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runReindexDocument(cmd.Context(), api, cmd.OutOrStdout(), args[0], outputJSON)
		},
	}
}

func runListDocuments(ctx context.Context, api *APIClient, w io.Writer, limit int, cursor string, outputJSON bool) error {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	path := apiPrefix + "/documents"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	resp, err := api.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	var list DocumentList
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		return fmt.Errorf("failed to parse documents: %w", err)
	}

	if outputJSON {
		return printJSON(w, list)
	}

	if len(list.Documents) == 0 {
		fmt.Fprintln(w, "No documents.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tCHUNKS\tFILENAME\tCREATED")
	for _, d := range list.Documents {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", d.ID, d.Status, d.ChunkCount, d.Filename, d.CreatedAt)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if list.HasMore {
		fmt.Fprintf(w, "\nMore results: --cursor %s\n", list.Cursor)
	}
	return nil
}

func runGetDocument(ctx context.Context, api *APIClient, w io.Writer, documentID string, outputJSON bool) error {
	resp, err := api.Get(ctx, apiPrefix+"/documents/"+url.PathEscape(documentID))
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	if outputJSON {
		return printJSON(w, doc)
	}

	fmt.Fprintf(w, "ID: %s\n", doc.ID)
	fmt.Fprintf(w, "Filename: %s\n", doc.Filename)
	fmt.Fprintf(w, "Status: %s\n", doc.Status)
	fmt.Fprintf(w, "Chunks: %d\n", doc.ChunkCount)
	if doc.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", doc.Error)
	}
	fmt.Fprintf(w, "Source: %s\n", doc.SourceURI)
	fmt.Fprintf(w, "Created: %s\n", doc.CreatedAt)
	fmt.Fprintf(w, "Updated: %s\n", doc.UpdatedAt)
	return nil
}

func runReindexDocument(ctx context.Context, api *APIClient, w io.Writer, documentID string, outputJSON bool) error {
	resp, err := api.Post(ctx, apiPrefix+"/documents/"+url.PathEscape(documentID)+"/reindex", nil)
	if err != nil {
		return fmt.Errorf("failed to queue reindex: %w", err)
	}

	var job ReindexJob
	if err := json.Unmarshal(resp.Data, &job); err != nil {
		return fmt.Errorf("failed to parse reindex job: %w", err)
	}

	if outputJSON {
		return printJSON(w, job)
	}

	fmt.Fprintf(w, "Queued reindex job %s for %s (%s)\n", job.JobID, job.DocumentID, job.Status)
	return nil
}
