package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openlabtools/labauth/internal/cli/prompt"
	"github.com/openlabtools/labauth/pkg/auth"
)

var checkCmd = &cobra.Command{
	Use:   "check <login>",
	Short: "Verify credentials through the provider chain",
	Long: `Run a login through the full provider chain and report the verdict.

The password is prompted interactively. Like a real login, the check
may create the local account on first use and synchronize its groups
and attributes.

Verdicts:
  yes      Credentials accepted
  no       Credentials rejected
  unknown  This chain cannot decide (unknown login or directory outage)

Examples:
  labauth check alice`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	login := args[0]

	ctx := context.Background()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	password, err := prompt.Password("Password")
	if err != nil {
		return err
	}

	verdict, err := rt.chain.CheckPassword(ctx, login, password, false)
	if err != nil {
		return fmt.Errorf("credential check failed: %w", err)
	}

	fmt.Printf("%s: %s\n", login, verdict)
	if verdict == auth.VerdictUnknown {
		fmt.Println("The chain cannot decide: the login is unknown to the directory or the directory is unreachable.")
	}
	return nil
}
