package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Manage edit locks on Draft versions",
}

var (
	lockTimeout    time.Duration
	lockSessionTag string
)

var lockAcquireCmd = &cobra.Command{
	Use:   "acquire <version-id>",
	Short: "Take out the edit lease on a Draft version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := currentPrincipal(ctx)
		if err != nil {
			return err
		}
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		ver, err := s.GetVersion(ctx, args[0])
		if err != nil {
			return PrintJSONError(err)
		}
		doc, err := s.GetDocument(ctx, ver.DocumentID)
		if err != nil {
			return PrintJSONError(err)
		}
		var tag *string
		if lockSessionTag != "" {
			tag = &lockSessionTag
		}
		lease, err := s.AcquireLock(ctx, doc, ver, p, lockTimeout, tag, now())
		if err != nil {
			return PrintJSONError(fmt.Errorf("acquire lock: %w", err))
		}
		if JSON() {
			return PrintJSON(lease)
		}
		fmt.Fprintf(Out(), "token %s  expires %s\n", lease.Token, unixToString(lease.ExpiresAt))
		return nil
	},
}

var lockHeartbeatCmd = &cobra.Command{
	Use:   "heartbeat <version-id> <token>",
	Short: "Extend an active edit lease",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := currentPrincipal(ctx)
		if err != nil {
			return err
		}
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		lease, err := s.HeartbeatLock(ctx, args[0], args[1], p, lockTimeout, now())
		if err != nil {
			return PrintJSONError(fmt.Errorf("heartbeat lock: %w", err))
		}
		if JSON() {
			return PrintJSON(lease)
		}
		fmt.Fprintf(Out(), "token %s  expires %s\n", lease.Token, unixToString(lease.ExpiresAt))
		return nil
	},
}

var lockForceRelease bool

var lockReleaseCmd = &cobra.Command{
	Use:   "release <version-id> <token>",
	Short: "Release an edit lease",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := currentPrincipal(ctx)
		if err != nil {
			return err
		}
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		forced, err := s.ReleaseLock(ctx, args[0], args[1], p, lockForceRelease, now())
		if err != nil {
			return PrintJSONError(fmt.Errorf("release lock: %w", err))
		}
		if JSON() {
			return PrintJSON(map[string]any{"forced_by_admin": forced})
		}
		if forced {
			fmt.Fprintln(Out(), "released (admin override)")
		} else {
			fmt.Fprintln(Out(), "released")
		}
		return nil
	},
}

var lockStatusCmd = &cobra.Command{
	Use:   "status <version-id>",
	Short: "Show the active edit lease on a version, if any",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		lease, err := s.GetLockStatus(cmd.Context(), args[0], now())
		if err != nil {
			return PrintJSONError(err)
		}
		if JSON() {
			return PrintJSON(lease)
		}
		if lease == nil {
			fmt.Fprintln(Out(), "unlocked")
			return nil
		}
		fmt.Fprintf(Out(), "held by %s  expires %s\n", lease.HolderName, unixToString(lease.ExpiresAt))
		return nil
	},
}

func init() {
	lockAcquireCmd.Flags().DurationVar(&lockTimeout, "timeout", 0, "Lease duration, clamped to the configured maximum (default: configured default)")
	lockAcquireCmd.Flags().StringVar(&lockSessionTag, "session-tag", "", "Opaque client session tag for diagnostics")
	lockHeartbeatCmd.Flags().DurationVar(&lockTimeout, "extend", 0, "Extension duration (default: configured default)")
	lockReleaseCmd.Flags().BoolVar(&lockForceRelease, "force", false, "Admin override: release regardless of token ownership")

	lockCmd.AddCommand(lockAcquireCmd, lockHeartbeatCmd, lockReleaseCmd, lockStatusCmd)
	rootCmd.AddCommand(lockCmd)
}
