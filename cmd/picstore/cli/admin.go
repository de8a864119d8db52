package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/picstore/picstore/internal/authz"
	"github.com/picstore/picstore/internal/record"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
		Long:  "Create administrator accounts with full access to every resource.",
	}

	cmd.AddCommand(newAdminCreateCmd())

	return cmd
}

// ---------- admin create ----------

func newAdminCreateCmd() *cobra.Command {
	var (
		username string
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new administrator",
		Example: `  picstore admin create --username root --email admin@example.com --password Secret123
  picstore admin create --username root --email admin@example.com  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminCreate(username, email, password)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Administrator username (required)")
	cmd.Flags().StringVar(&email, "email", "", "Administrator email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Administrator password (prompted if omitted)")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runAdminCreate(username, email, password string) error {
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

	admin := record.Users.New()
	admin.Set("username", username)
	admin.Set("email", email)
	admin.Set("password", password)
	admin.Set("join_date", time.Now().Format("2006-01-02"))
	admin.Set("permission_group", int64(authz.GroupAdmin))

	if errs := admin.Validate(); len(errs) > 0 {
		for field, fieldErrs := range errs {
			for _, e := range fieldErrs {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", field, e.Description)
			}
		}
		return fmt.Errorf("invalid administrator account")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	admin.Set("password", string(hash))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	names, values := admin.SetFields()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	q := fmt.Sprintf("INSERT INTO users (%s) VALUES (%s)", strings.Join(names, ", "), placeholders)

	if _, err := db.ExecContext(context.Background(), db.Rebind(q), values...); err != nil {
		return fmt.Errorf("create administrator: %w", err)
	}

	fmt.Printf("Created administrator %q\n", username)
	return nil
}
