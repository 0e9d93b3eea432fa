package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loginForce bool

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Authenticate and cache a session token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		credential, err := promptCredential("Password: ")
		if err != nil {
			return err
		}
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		session, err := s.Login(cmd.Context(), args[0], credential, loginForce, now())
		if err != nil {
			return PrintJSONError(fmt.Errorf("login: %w", err))
		}
		if err := saveSessionToken(session.Token); err != nil {
			return err
		}
		if JSON() {
			return PrintJSON(map[string]any{"username": session.Username, "roles": session.Roles, "expires_at": session.ExpiresAt})
		}
		fmt.Fprintf(Out(), "logged in as %s (expires %s)\n", session.Username, unixToString(session.ExpiresAt))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Invalidate the current session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := currentPrincipal(cmd.Context())
		if err != nil {
			return err
		}
		s, err := serviceForCmd()
		if err != nil {
			return err
		}
		if err := s.Logout(cmd.Context(), p.ID, now()); err != nil {
			return PrintJSONError(err)
		}
		if err := clearSessionToken(); err != nil {
			return err
		}
		fmt.Fprintln(Out(), "logged out")
		return nil
	},
}

func init() {
	loginCmd.Flags().BoolVar(&loginForce, "force", false, "Invalidate any existing session for this principal")
	rootCmd.AddCommand(loginCmd, logoutCmd)
}
