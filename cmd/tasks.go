package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pharmadocs/dmsd/internal/store"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Show documents requiring the current principal's action",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		p, err := currentPrincipal(ctx)
		if err != nil {
			return err
		}
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		tasks, err := s.GetPendingTasks(ctx, p)
		if err != nil {
			return PrintJSONError(err)
		}
		if JSON() {
			return PrintJSON(tasks)
		}
		for _, t := range tasks {
			fmt.Fprintf(Out(), "[%s] %-8s doc %s  version %s\n", t.Priority, t.Type, t.Document, t.Version)
		}
		return nil
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the append-only audit trail",
}

var (
	auditPrincipal string
	auditAction    string
	auditEntity    string
	auditOffset    int
	auditLimit     int
)

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit entries, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		entries, total, err := s.ListAuditEntries(cmd.Context(), store.AuditFilter{
			PrincipalID: auditPrincipal,
			Action:      auditAction,
			EntityKind:  auditEntity,
			Offset:      auditOffset,
			Limit:       auditLimit,
		})
		if err != nil {
			return PrintJSONError(err)
		}
		if JSON() {
			return PrintJSON(map[string]any{"entries": entries, "total": total})
		}
		for _, e := range entries {
			fmt.Fprintf(Out(), "%s  %s  %s %s  %s\n", unixToString(e.CreatedAt), e.Username, e.Action, e.EntityID, e.Description)
		}
		fmt.Fprintf(Out(), "%d of %d\n", len(entries), total)
		return nil
	},
}

func init() {
	auditListCmd.Flags().StringVar(&auditPrincipal, "principal", "", "Filter by principal id")
	auditListCmd.Flags().StringVar(&auditAction, "action", "", "Filter by action name")
	auditListCmd.Flags().StringVar(&auditEntity, "entity-kind", "", "Filter by entity kind")
	auditListCmd.Flags().IntVar(&auditOffset, "offset", 0, "Pagination offset")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 50, "Pagination limit")

	auditCmd.AddCommand(auditListCmd)
	rootCmd.AddCommand(tasksCmd, auditCmd)
}
