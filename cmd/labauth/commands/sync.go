package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openlabtools/labauth/internal/cli/prompt"
	"github.com/openlabtools/labauth/pkg/provision"
)

var syncYes bool

var syncCmd = &cobra.Command{
	Use:   "sync <login>",
	Short: "Synchronize an account with the directory",
	Long: `Run a full synchronization pass for a local account: group
memberships, default group and profile attributes, according to the
configured sync policy.

Examples:
  labauth sync alice
  labauth sync alice --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVarP(&syncYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runSync(cmd *cobra.Command, args []string) error {
	login := args[0]

	if !syncYes {
		ok, err := prompt.Confirm(fmt.Sprintf("Synchronize account %q with the directory?", login), false)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
	}

	ctx := context.Background()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	if err := rt.service.SynchronizeAccount(ctx, login); err != nil {
		if errors.Is(err, provision.ErrNotFoundLocally) {
			return fmt.Errorf("account %q does not exist locally; it is created on first login", login)
		}
		return fmt.Errorf("synchronization failed: %w", err)
	}

	fmt.Printf("Account %q synchronized.\n", login)
	return nil
}
