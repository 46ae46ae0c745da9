package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bikeracer4487/xray-mcp-sub001/internal/service"
)

// Settings keys for the single admin account.
const (
	settingAdminEmail        = "admin_email"
	settingAdminPasswordHash = "admin_password_hash"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage the admin account",
		Long:  "Set or inspect the single administrative account used to log in to the system API.",
	}

	cmd.AddCommand(newAdminSetCmd())
	cmd.AddCommand(newAdminShowCmd())

	return cmd
}

// ---------- admin set ----------

func newAdminSetCmd() *cobra.Command {
	var (
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the admin email and password",
		Example: `  xraymcp admin set --email admin@example.com --password secret
  xraymcp admin set --email admin@example.com  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminSet(email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (prompted if omitted)")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runAdminSet(email, password string) error {
	if password == "" {
		fmt.Print("Password: ")
		pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()
		password = string(pwBytes)

		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Println()

		if password != string(confirmBytes) {
			return fmt.Errorf("passwords do not match")
		}
	}

	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.SetSetting(ctx, settingAdminEmail, email); err != nil {
		return fmt.Errorf("save admin email: %w", err)
	}
	if err := store.SetSetting(ctx, settingAdminPasswordHash, service.HashKey(password)); err != nil {
		return fmt.Errorf("save admin password: %w", err)
	}

	fmt.Printf("Admin account set to %q\n", email)
	return nil
}

// ---------- admin show ----------

func newAdminShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the configured admin email",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminShow()
		},
	}

	return cmd
}

func runAdminShow() error {
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer store.Close()

	email, err := store.GetSetting(context.Background(), settingAdminEmail)
	if err != nil || email == "" {
		fmt.Println("No admin account configured. Use 'xraymcp admin set' to create one.")
		return nil
	}

	fmt.Printf("Admin: %s\n", email)
	return nil
}
