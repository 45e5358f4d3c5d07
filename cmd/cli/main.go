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

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// apiClient talks to the bankledger HTTP API.
type apiClient struct {
	baseURL        string
	timeout        time.Duration
	idempotencyKey string
	out            io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &apiClient{out: out}

	rootCmd := &cobra.Command{
		Use:           "bankledger-cli",
		Short:         "BankLedger CLI tool",
		Long:          `A command line interface for interacting with the BankLedger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVar(&c.baseURL, "url", "http://localhost:8080", "Base URL of the BankLedger API")
	rootCmd.PersistentFlags().DurationVar(&c.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&c.idempotencyKey, "idempotency-key", "", "Idempotency-Key header for mutating requests")

	rootCmd.AddCommand(
		accountCmd(c),
		amountCmd(c, "deposit", "Deposit funds into an account"),
		amountCmd(c, "withdraw", "Withdraw funds from an account"),
		transferCmd(c),
		loanCmd(c),
		ledgerCmd(c),
	)

	return rootCmd
}

func accountCmd(c *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account operations",
	}

	openCmd := &cobra.Command{
		Use:   "open <owner-id>",
		Short: "Open the account of an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do(http.MethodPost, "/api/v1/accounts", map[string]string{"owner_id": args[0]})
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <account-id>",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do(http.MethodGet, "/api/v1/accounts/"+url.PathEscape(args[0]), nil)
		},
	}

	findCmd := &cobra.Command{
		Use:   "find <owner-id>",
		Short: "Find the account of an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do(http.MethodGet, "/api/v1/accounts?"+url.Values{"owner_id": {args[0]}}.Encode(), nil)
		},
	}

	var limit, offset int
	entriesCmd := &cobra.Command{
		Use:   "entries <account-id>",
		Short: "List the journal of an account, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{
				"limit":  {strconv.Itoa(limit)},
				"offset": {strconv.Itoa(offset)},
			}
			return c.do(http.MethodGet, "/api/v1/accounts/"+url.PathEscape(args[0])+"/entries?"+q.Encode(), nil)
		},
	}
	entriesCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries")
	entriesCmd.Flags().IntVar(&offset, "offset", 0, "Number of entries to skip")

	cmd.AddCommand(openCmd, getCmd, findCmd, entriesCmd)
	return cmd
}

func amountCmd(c *apiClient, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <account-id> <amount>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			return c.do(http.MethodPost, "/api/v1/accounts/"+url.PathEscape(args[0])+"/"+action,
				map[string]string{"amount": amount})
		},
	}
}

func transferCmd(c *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <from-account-id> <to-account-id> <amount>",
		Short: "Transfer funds between accounts",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[2])
			if err != nil {
				return err
			}
			return c.do(http.MethodPost, "/api/v1/transfers", map[string]string{
				"from_account_id": args[0],
				"to_account_id":   args[1],
				"amount":          amount,
			})
		},
	}
}

func loanCmd(c *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Loan operations",
	}

	requestCmd := &cobra.Command{
		Use:   "request <owner-id> <amount>",
		Short: "Request a loan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			return c.do(http.MethodPost, "/api/v1/loans", map[string]string{
				"owner_id": args[0],
				"amount":   amount,
			})
		},
	}

	decideCmd := &cobra.Command{
		Use:   "decide <approve|reject> <loan-id>...",
		Short: "Approve or reject pending loans",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			decision, ids := args[0], args[1:]
			if decision != "approve" && decision != "reject" {
				return fmt.Errorf("decision must be approve or reject, got %q", decision)
			}
			if len(ids) == 1 {
				return c.do(http.MethodPost, "/api/v1/loans/"+url.PathEscape(ids[0])+"/decision",
					map[string]string{"decision": decision})
			}
			return c.do(http.MethodPost, "/api/v1/loans/decisions", map[string]any{
				"loan_ids": ids,
				"decision": decision,
			})
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <loan-id>",
		Short: "Show a loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do(http.MethodGet, "/api/v1/loans/"+url.PathEscape(args[0]), nil)
		},
	}

	var owner, status string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List loans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if owner != "" {
				q.Set("owner_id", owner)
			}
			if status != "" {
				q.Set("status", status)
			}
			path := "/api/v1/loans"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			return c.do(http.MethodGet, path, nil)
		},
	}
	listCmd.Flags().StringVar(&owner, "owner", "", "Only loans of this owner")
	listCmd.Flags().StringVar(&status, "status", "", "Only loans in this status (pending, approved, rejected)")

	cmd.AddCommand(requestCmd, decideCmd, getCmd, listCmd)
	return cmd
}

func ledgerCmd(c *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	consistencyCmd := &cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do(http.MethodGet, "/api/v1/ledger/consistency", nil)
		},
	}

	cmd.AddCommand(consistencyCmd)
	return cmd
}

// parseAmount validates an amount locally and returns it in canonical form.
func parseAmount(s string) (string, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return amount.String(), nil
}

// do sends a request, prints the JSON response and fails on non-2xx statuses.
func (c *apiClient) do(method, path string, payload any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.idempotencyKey != "" && method != http.MethodGet {
		req.Header.Set("Idempotency-Key", c.idempotencyKey)
	}

	client := &http.Client{Timeout: c.timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	printJSON(c.out, raw)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("request failed (status %d)", resp.StatusCode)
	}
	return nil
}

// printJSON indents raw JSON, falling back to the raw bytes.
func printJSON(w io.Writer, raw []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		fmt.Fprintln(w, string(raw))
		return
	}
	fmt.Fprintln(w, buf.String())
}
