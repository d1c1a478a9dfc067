// Package console define la CLI del dashboard de terminal.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"admin-panel/internal/app"
	"admin-panel/internal/config"
	"admin-panel/internal/tui"
)

var (
	verbose   bool
	ephemeral bool
)

var rootCmd = &cobra.Command{
	Use:   "admin-console",
	Short: "Terminal admin dashboard with email OTP sign-in",
	Long: `admin-console signs in to the store admin with an email one-time code
and keeps the session on this device until you log out.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open the interactive dashboard",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		model := tui.NewModel(cmd.Context(), a.Session, a.Guard)
		defer model.Close()
		_, err = tea.NewProgram(model, tea.WithContext(cmd.Context())).Run()
		return err
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print the identity stored on this device",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return whoami(cmd.Context(), a, cmd.OutOrStdout())
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the session stored on this device",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Guard.Logout(cmd.Context()); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep the session in memory only")
	rootCmd.AddCommand(runCmd, whoamiCmd, logoutCmd)
}

// ExecuteContext corre la CLI con el contexto dado.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func bootstrap(ctx context.Context) (*app.App, error) {
	if err := godotenv.Load(); err != nil && verbose {
		log.Printf("warning: loading .env: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if ephemeral {
		cfg.SessionBackend = config.BackendMemory
	}

	// la TUI ocupa la terminal, asi que solo se loguea con --verbose
	logger := zap.NewNop()
	if verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
	}
	return app.New(ctx, cfg, logger, app.Options{})
}

func whoami(ctx context.Context, a *app.App, out io.Writer) error {
	a.Session.Init(ctx)
	identity, ok := a.Guard.Identity()
	if !ok {
		fmt.Fprintln(out, "Not signed in")
		return nil
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(identity)
}
