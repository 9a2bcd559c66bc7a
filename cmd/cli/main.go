package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const idempotencyKeyHeader = "X-Idempotency-Key"

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// apiClient talks to the ledger HTTP API.
type apiClient struct {
	baseURL string
	http    *http.Client
	out     io.Writer
}

// apiError is a non-2xx answer from the API.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("request failed (status %d): %s", e.Status, e.Body)
}

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		baseURL string
		timeout time.Duration
	)

	c := &apiClient{out: out}

	rootCmd := &cobra.Command{
		Use:           "entryledger-cli",
		Short:         "EntryLedger CLI tool",
		Long:          `A command line interface for interacting with the EntryLedger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.baseURL = baseURL
			c.http = &http.Client{Timeout: timeout}
		},
	}
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the EntryLedger API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(
		accountsCmd(c),
		withdrawCmd(c),
		transferCmd(c),
		transactionsCmd(c),
		ledgerCmd(c),
	)

	return rootCmd
}

func accountsCmd(c *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Account operations",
	}

	var initialBalance int64
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an account with an optional opening balance in cents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do(http.MethodPost, "/api/v1/accounts/", "", map[string]any{
				"name":           args[0],
				"initialBalance": initialBalance,
			})
		},
	}
	create.Flags().Int64Var(&initialBalance, "initial-balance", 0, "Opening balance in cents")

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show an account with its live balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do(http.MethodGet, "/api/v1/accounts/"+url.PathEscape(args[0]), "", nil)
		},
	}

	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do(http.MethodGet, "/api/v1/accounts/"+pageQuery(limit, offset), "", nil)
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "Page size")
	list.Flags().IntVar(&offset, "offset", 0, "Page offset")

	refresh := &cobra.Command{
		Use:   "refresh ID",
		Short: "Recompute the cached balance of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do(http.MethodPost, "/api/v1/accounts/"+url.PathEscape(args[0])+"/refresh-balance", "", nil)
		},
	}

	cmd.AddCommand(create, get, list, refresh)

	return cmd
}

func withdrawCmd(c *apiClient) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "withdraw SOURCE_ID AMOUNT",
		Short: "Withdraw an amount in cents from an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}

			return c.do(http.MethodPost, "/api/v1/withdrawals", ensureKey(c, key), map[string]any{
				"sourceId": args[0],
				"amount":   amount,
			})
		},
	}
	cmd.Flags().StringVar(&key, "idempotency-key", "", "Idempotency key (generated when empty)")

	return cmd
}

func transferCmd(c *apiClient) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "transfer SOURCE_ID DESTINATION_ID AMOUNT",
		Short: "Move an amount in cents between two accounts",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[2], err)
			}

			return c.do(http.MethodPost, "/api/v1/transfers", ensureKey(c, key), map[string]any{
				"sourceId":      args[0],
				"destinationId": args[1],
				"amount":        amount,
			})
		},
	}
	cmd.Flags().StringVar(&key, "idempotency-key", "", "Idempotency key (generated when empty)")

	return cmd
}

func transactionsCmd(c *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Transaction lookups",
	}

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show a transaction with its entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do(http.MethodGet, "/api/v1/transactions/"+url.PathEscape(args[0]), "", nil)
		},
	}

	var limit, offset int
	list := &cobra.Command{
		Use:   "list ACCOUNT_ID",
		Short: "List the transactions of an account, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do(http.MethodGet, "/api/v1/accounts/"+url.PathEscape(args[0])+"/transactions"+pageQuery(limit, offset), "", nil)
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "Page size")
	list.Flags().IntVar(&offset, "offset", 0, "Page offset")

	cmd.AddCommand(get, list)

	return cmd
}

func ledgerCmd(c *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	consistency := &cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.checkConsistency()
		},
	}

	reconcile := &cobra.Command{
		Use:   "reconcile [ACCOUNT_ID]",
		Short: "Compare cached balances with live balances",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return c.do(http.MethodGet, "/api/v1/ledger/reconciliation/"+url.PathEscape(args[0]), "", nil)
			}
			return c.do(http.MethodGet, "/api/v1/ledger/reconciliation", "", nil)
		},
	}

	cmd.AddCommand(consistency, reconcile)

	return cmd
}

func (c *apiClient) checkConsistency() error {
	status, body, err := c.request(http.MethodGet, "/api/v1/ledger/consistency", "", nil)
	if err != nil {
		return err
	}

	if status != http.StatusOK && status != http.StatusConflict {
		return &apiError{Status: status, Body: string(body)}
	}

	var result struct {
		Status     string         `json:"status"`
		Consistent bool           `json:"consistent"`
		Ledger     map[string]any `json:"ledger"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if !result.Consistent {
		fmt.Fprintf(c.out, "Consistency check FAILED\n")
		printJSON(c.out, result.Ledger)
		return fmt.Errorf("ledger is inconsistent")
	}

	fmt.Fprintf(c.out, "Consistency check PASSED\n")
	fmt.Fprintf(c.out, "Status: %s\n", result.Status)

	return nil
}

// do sends a request and pretty-prints the JSON answer.
func (c *apiClient) do(method, path, key string, payload any) error {
	status, body, err := c.request(method, path, key, payload)
	if err != nil {
		return err
	}

	if status < 200 || status >= 300 {
		return &apiError{Status: status, Body: string(body)}
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	printJSON(c.out, v)

	return nil
}

func (c *apiClient) request(method, path, key string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	return resp.StatusCode, body, nil
}

// ensureKey returns key, or a fresh UUID printed so the caller can retry
// with the same key.
func ensureKey(c *apiClient, key string) string {
	if key != "" {
		return key
	}

	key = uuid.NewString()
	fmt.Fprintf(c.out, "Idempotency key: %s\n", key)

	return key
}

func pageQuery(limit, offset int) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return "?" + q.Encode()
}

func printJSON(out io.Writer, v any) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(out, "%v\n", v)
		return
	}
	fmt.Fprintln(out, string(raw))
}
