package client

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func AuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored server credentials",
	}

	cmd.AddCommand(authLoginCmd())
	cmd.AddCommand(authLogoutCmd())
	cmd.AddCommand(authStatusCmd())

	return cmd
}

func authLoginCmd() *cobra.Command {
	var apiKey, apiURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store API URL and key in the global config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := SaveGlobalConfig(&GlobalConfig{APIKey: apiKey, APIURL: apiURL}); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Credentials saved")
			return nil
		},
	}

	cmd.Flags().StringVar(&apiKey, "key", "", "API key (leave empty when the server has no key)")
	cmd.Flags().StringVar(&apiURL, "url", defaultAPIURL, "API URL")

	return cmd
}

func authLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteGlobalConfig(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Credentials removed")
			return nil
		},
	}
}

func authStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which server and key the CLI would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			flagKey, _ := cmd.Flags().GetString("api-key")
			flagURL, _ := cmd.Flags().GetString("api-url")
			outputJSON, _ := cmd.Flags().GetBool("output")

			apiKey, apiURL, err := resolveCredentials(flagKey, flagURL)
			if err != nil {
				return err
			}
			return writeStatus(cmd.OutOrStdout(), GetCredentialSource(flagURL), apiKey, apiURL, outputJSON)
		},
	}
}

func writeStatus(w io.Writer, source CredentialSource, apiKey, apiURL string, outputJSON bool) error {
	if outputJSON {
		return printJSON(w, map[string]interface{}{
			"source":  string(source),
			"api_url": apiURL,
			"api_key": maskAPIKey(apiKey),
		})
	}

	fmt.Fprintf(w, "API URL: %s (%s)\n", apiURL, source)
	if apiKey == "" {
		fmt.Fprintln(w, "API Key: none")
	} else {
		fmt.Fprintf(w, "API Key: %s\n", maskAPIKey(apiKey))
	}
	return nil
}

func maskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) < 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
