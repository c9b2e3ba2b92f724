package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openlabtools/labauth/internal/cli/output"
	"github.com/openlabtools/labauth/pkg/account"
)

var userOutput string

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Inspect local accounts",
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all local accounts",
	Long: `List all accounts in the local store.

Examples:
  labauth user list
  labauth user list -o json`,
	RunE: runUserList,
}

var userGetCmd = &cobra.Command{
	Use:   "get <login>",
	Short: "Show one local account",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserGet,
}

func init() {
	userCmd.PersistentFlags().StringVarP(&userOutput, "output", "o", "table", "Output format (table, json, yaml)")
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userGetCmd)
}

// AccountList renders accounts as a table.
type AccountList []*account.Account

// Headers implements output.TableRenderer.
func (al AccountList) Headers() []string {
	return []string{"LOGIN", "NAME", "EMAIL", "DEFAULT GROUP", "GROUPS", "PROTECTED"}
}

// Rows implements output.TableRenderer.
func (al AccountList) Rows() [][]string {
	rows := make([][]string, 0, len(al))
	for _, a := range al {
		rows = append(rows, []string{
			a.Login,
			emptyOr(strings.TrimSpace(a.FirstName+" "+a.LastName), "-"),
			emptyOr(a.Email, "-"),
			defaultGroupName(a),
			emptyOr(strings.Join(groupNames(a), ", "), "-"),
			fmt.Sprintf("%t", a.Protected),
		})
	}
	return rows
}

func runUserList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	accounts, err := rt.store.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	return printOutput(userOutput, accounts, AccountList(accounts))
}

func runUserGet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	acct, err := rt.store.FindAccountByLogin(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}

	return printOutput(userOutput, acct, AccountList{acct})
}

func groupNames(a *account.Account) []string {
	names := make([]string, len(a.Groups))
	for i, g := range a.Groups {
		names[i] = g.Name
	}
	return names
}

func defaultGroupName(a *account.Account) string {
	if g := a.DefaultGroup(); g != nil {
		return g.Name
	}
	return "-"
}

func emptyOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// printOutput renders data in the requested format: the table renderer
// for table output, the raw value for JSON and YAML.
func printOutput(formatFlag string, raw any, table output.TableRenderer) error {
	format, err := output.ParseFormat(formatFlag)
	if err != nil {
		return err
	}

	printer := output.NewPrinter(os.Stdout, format)
	if format == output.FormatTable {
		return printer.Print(table)
	}
	return printer.Print(raw)
}
