package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orbo-dev/orbo/internal/cli/client"
	"github.com/orbo-dev/orbo/internal/cli/userconfig"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var server, email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with an Orbo server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(email, password, WithServer(server), WithOutput(cmd.OutOrStdout()))
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server URL (or set ORBO_SERVER)")
	cmd.Flags().StringVar(&email, "email", "", "Email address (or set ORBO_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set ORBO_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(email, password string, opts ...Option) error {
	rt := newRuntime(opts...)

	// Check for environment variables (useful for CI/CD)
	if email == "" {
		email = os.Getenv("ORBO_EMAIL")
	}
	if password == "" {
		password = os.Getenv("ORBO_PASSWORD")
	}

	cfg, err := userconfig.Load()
	if err != nil {
		return err
	}

	if email == "" {
		email = cfg.Email
	}
	if email == "" {
		return fmt.Errorf("email is required (use --email flag or ORBO_EMAIL env var)")
	}

	server, err := rt.serverURL(cfg)
	if err != nil {
		return err
	}

	if password == "" {
		if password, err = rt.password(); err != nil {
			return err
		}
	}

	fmt.Fprintf(rt.out, "Logging in to %s...\n", server)

	loginResp, err := client.New(server, "").Login(email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := rt.tokens.SaveToken(server, loginResp.Token); err != nil {
		return fmt.Errorf("failed to save authentication token: %w", err)
	}

	// A different server or account invalidates the selected organization
	if cfg.ServerURL != server || cfg.Email != loginResp.User.Email {
		cfg.SelectedOrgID = ""
	}
	cfg.ServerURL = server
	cfg.Email = loginResp.User.Email
	if err := userconfig.Save(cfg); err != nil {
		return err
	}

	fmt.Fprintln(rt.out, "✓ Login successful!")
	fmt.Fprintf(rt.out, "  User: %s\n", loginResp.User.Email)

	return nil
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token for the current server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(WithOutput(cmd.OutOrStdout()))
		},
	}
}

func runLogout(opts ...Option) error {
	rt := newRuntime(opts...)

	cfg, err := userconfig.Load()
	if err != nil {
		return err
	}
	server, err := rt.serverURL(cfg)
	if err != nil {
		return err
	}

	if err := rt.tokens.DeleteToken(server); err != nil {
		return err
	}

	cfg.SelectedOrgID = ""
	if err := userconfig.Save(cfg); err != nil {
		return err
	}

	fmt.Fprintf(rt.out, "Logged out of %s\n", server)
	return nil
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(WithOutput(cmd.OutOrStdout()))
		},
	}
}

func runWhoami(opts ...Option) error {
	rt := newRuntime(opts...)

	apiClient, _, err := rt.authedClient()
	if err != nil {
		return err
	}

	user, err := apiClient.Me()
	if err != nil {
		return explain(err)
	}

	fmt.Fprintf(rt.out, "%s (%s)\n", user.Email, user.ID)
	if user.Superadmin {
		fmt.Fprintln(rt.out, "  Superadmin")
	}
	return nil
}
