package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openlabtools/labauth/pkg/account"
)

var groupOutput string

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Inspect local groups",
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all local groups",
	Long: `List all groups in the local store.

Examples:
  labauth group list
  labauth group list -o yaml`,
	RunE: runGroupList,
}

func init() {
	groupCmd.PersistentFlags().StringVarP(&groupOutput, "output", "o", "table", "Output format (table, json, yaml)")
	groupCmd.AddCommand(groupListCmd)
}

// GroupList renders groups as a table.
type GroupList []*account.Group

// Headers implements output.TableRenderer.
func (gl GroupList) Headers() []string {
	return []string{"NAME", "PERMISSIONS", "SYSTEM"}
}

// Rows implements output.TableRenderer.
func (gl GroupList) Rows() [][]string {
	rows := make([][]string, 0, len(gl))
	for _, g := range gl {
		rows = append(rows, []string{g.Name, string(g.Permissions), fmt.Sprintf("%t", g.System)})
	}
	return rows
}

func runGroupList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	rt, err := buildRuntime(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	groups, err := rt.store.ListGroups(ctx)
	if err != nil {
		return fmt.Errorf("failed to list groups: %w", err)
	}

	return printOutput(groupOutput, groups, GroupList(groups))
}
