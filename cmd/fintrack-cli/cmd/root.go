// Package cmd provides the fintrack-cli commands.
package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fintrack/internal/auth"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/session"
	"fintrack/internal/store"
)

var (
	dbPath   string
	email    string
	password string
	debug    bool

	logger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fintrack-cli",
	Short: "Inspect and edit fintrack transactions",
	Long: `fintrack-cli signs in to a fintrack SQLite database and works on the
transactions of that account, the same way the web app does.

Example:
  fintrack-cli --email ann@example.com stats
  fintrack-cli --email ann@example.com list --kind expense --sort amount
  fintrack-cli --email ann@example.com add --type income --amount 1200 --category Salary`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cli.LoadEnvFile()
		level := os.Getenv("LOG_LEVEL")
		if debug {
			level = "debug"
		}
		logger = cli.SetupLogger(level).WithComponent(log.ComponentCLI)
	},
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default SQLITE_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&email, "email", "", "account email")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "account password (default FINTRACK_PASSWORD)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
}

// withAccount opens the backend, signs in and hands the loaded state to fn.
// The session is revoked again before returning.
func withAccount(ctx context.Context, fn func(ctx context.Context, st *session.State) error) (err error) {
	if email == "" {
		return errors.New("--email is required")
	}
	if password == "" {
		password = os.Getenv("FINTRACK_PASSWORD")
	}

	cfg := config.Load()
	cfg.DataBackend = "sqlite"
	if dbPath != "" {
		cfg.SQLiteDBPath = dbPath
	}
	res, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := res.Cleanup(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	ordering, err := store.ParseOrdering(cfg.ListOrdering)
	if err != nil {
		return err
	}
	// Tokens never leave this process, so a throwaway signing key is enough.
	secret, err := ephemeralSecret()
	if err != nil {
		return err
	}
	authSvc, err := auth.NewService(res.Backend, res.Backend, auth.Config{Secret: secret}, logger)
	if err != nil {
		return err
	}
	sessions := session.NewManager(authSvc, res.Backend, session.Config{Ordering: ordering}, logger)

	token, st, err := sessions.SignIn(ctx, email, password)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	defer func() {
		if serr := sessions.SignOut(ctx, token); serr != nil {
			logger.Warn("Failed to revoke CLI session", log.FieldError, serr)
		}
	}()
	if !st.Transactions.Loaded() {
		return errors.New("transactions could not be loaded")
	}
	return fn(ctx, st)
}

func ephemeralSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate signing key: %w", err)
	}
	return hex.EncodeToString(b), nil
}
