package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"shopx/internal/domain"
)

// storectl invite --email someone@example.com
var inviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Issue a single-use admin registration token",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if email == "" {
			return errors.New("--email is required")
		}

		ctx := cmd.Context()
		a, _, err := boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if ttl <= 0 {
			ttl = a.Config.InviteTTL
		}

		token, inv, err := a.Identity.IssueInvitation(ctx, email, ttl)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Invitation for %s (expires %s):\n", inv.Email, inv.ExpiresAt.Format(time.RFC3339))
		fmt.Fprintln(out, token)
		return nil
	},
}

// storectl create-admin
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account if the username is free",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			return errors.New("--password is required")
		}

		ctx := cmd.Context()
		a, _, err := boot(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		u, err := a.Identity.CreateSuperuser(ctx, username, email, password)
		if errors.Is(err, domain.ErrAlreadyExists) {
			fmt.Fprintln(out, "Admin user already exists")
			return nil
		}
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		fmt.Fprintf(out, "Created admin account %s <%s>\n", u.Username, u.Email)
		return nil
	},
}

func init() {
	inviteCmd.Flags().String("email", "", "address the invitation is issued for")
	inviteCmd.Flags().Duration("ttl", 0, "token lifetime (defaults to INVITE_TTL)")

	createAdminCmd.Flags().String("username", "admin", "admin username")
	createAdminCmd.Flags().String("email", "admin@example.com", "admin e-mail")
	createAdminCmd.Flags().String("password", "", "admin password")
}
