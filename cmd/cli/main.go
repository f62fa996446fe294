package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/cashflow/internal/adapter/http/dto"
	"github.com/iho/cashflow/internal/adapter/http/middleware"
)

// apiClient talks to the cashflow HTTP API.
type apiClient struct {
	baseURL        string
	idempotencyKey string
	jsonOutput     bool
	http           *http.Client
}

// apiError is a non-2xx answer from the API.
type apiError struct {
	Status int
	Body   dto.ErrorResponse
}

func (e *apiError) Error() string {
	if e.Body.Message != "" {
		return fmt.Sprintf("%s (status %d): %s", e.Body.Error, e.Status, e.Body.Message)
	}
	return fmt.Sprintf("%s (status %d)", e.Body.Error, e.Status)
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.baseURL, "/")+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.idempotencyKey != "" && method == http.MethodPost {
		req.Header.Set(middleware.IdempotencyKeyHeader, c.idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		if json.Unmarshal(data, &apiErr.Body) != nil || apiErr.Body.Error == "" {
			apiErr.Body.Error = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	client := &apiClient{}
	var timeout time.Duration

	rootCmd := &cobra.Command{
		Use:           "cashflow-cli",
		Short:         "Cashflow CLI tool",
		Long:          `A command line interface for interacting with the Cashflow account API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			client.http = &http.Client{Timeout: timeout}
		},
	}

	rootCmd.PersistentFlags().StringVar(&client.baseURL, "url", "http://localhost:8080", "Base URL of the Cashflow API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&client.jsonOutput, "json", false, "Print raw JSON responses")
	rootCmd.PersistentFlags().StringVar(&client.idempotencyKey, "idempotency-key", "", "Idempotency-Key sent with commands")

	rootCmd.AddCommand(
		newOpenCmd(client),
		newMoveCmd(client, "deposit", "Deposit money into an account"),
		newMoveCmd(client, "withdraw", "Withdraw money from an account"),
		newBalanceCmd(client),
		newCloseCmd(client),
		newEventsCmd(client),
	)

	return rootCmd
}

func newOpenCmd(client *apiClient) *cobra.Command {
	var currency string

	cmd := &cobra.Command{
		Use:   "open <owner-name>",
		Short: "Open a new account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var account dto.AccountResponse
			req := dto.OpenAccountRequest{OwnerName: args[0], Currency: currency}
			if err := client.do(cmd.Context(), http.MethodPost, "/api/v1/accounts/", req, &account); err != nil {
				return err
			}
			if client.jsonOutput {
				return printJSON(cmd.OutOrStdout(), account)
			}
			printAccount(cmd.OutOrStdout(), &account)
			return nil
		},
	}

	cmd.Flags().StringVar(&currency, "currency", "", "ISO 4217 currency code (server default when empty)")
	return cmd
}

func newMoveCmd(client *apiClient, action, short string) *cobra.Command {
	var currency string

	cmd := &cobra.Command{
		Use:   action + " <account-id> <amount>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var account dto.AccountResponse
			req := dto.MoneyRequest{Amount: args[1], Currency: currency}
			if err := client.do(cmd.Context(), http.MethodPost, accountPath(args[0], action), req, &account); err != nil {
				return err
			}
			if client.jsonOutput {
				return printJSON(cmd.OutOrStdout(), account)
			}
			printAccount(cmd.OutOrStdout(), &account)
			return nil
		},
	}

	cmd.Flags().StringVar(&currency, "currency", "", "Currency of the amount (account currency when empty)")
	return cmd
}

func newBalanceCmd(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account-id>",
		Short: "Show the balance of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var balance dto.BalanceResponse
			if err := client.do(cmd.Context(), http.MethodGet, accountPath(args[0], "balance"), nil, &balance); err != nil {
				return err
			}
			if client.jsonOutput {
				return printJSON(cmd.OutOrStdout(), balance)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", balance.Balance, balance.Currency)
			return nil
		},
	}
}

func newCloseCmd(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "close <account-id>",
		Short: "Close an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.do(cmd.Context(), http.MethodPost, accountPath(args[0], "close"), nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account %s closed\n", args[0])
			return nil
		},
	}
}

func newEventsCmd(client *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "events <account-id>",
		Short: "List the recorded events of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var history dto.EventsResponse
			if err := client.do(cmd.Context(), http.MethodGet, accountPath(args[0], "events"), nil, &history); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if client.jsonOutput {
				return printJSON(out, history)
			}
			for _, e := range history.Events {
				fmt.Fprintf(out, "%4d  %-15s %s", e.Sequence, e.Type, e.OccurredAt.Format(time.RFC3339))
				if e.Amount != "" {
					fmt.Fprintf(out, "  %s %s", e.Amount, e.Currency)
				}
				if e.OwnerName != "" {
					fmt.Fprintf(out, "  owner=%s", truncate(e.OwnerName, 32))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

func accountPath(id, action string) string {
	return "/api/v1/accounts/" + id + "/" + action
}

func printAccount(out io.Writer, a *dto.AccountResponse) {
	state := "open"
	if a.Closed {
		state = "closed"
	}
	fmt.Fprintf(out, "ID:       %s\n", a.ID)
	fmt.Fprintf(out, "Owner:    %s\n", a.OwnerName)
	fmt.Fprintf(out, "Balance:  %s %s\n", a.Balance, a.Currency)
	fmt.Fprintf(out, "State:    %s\n", state)
	fmt.Fprintf(out, "Version:  %d\n", a.Version)
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
