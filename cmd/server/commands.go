package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ayushanand27/xhire/internal/bootstrap"
	gormpersistence "github.com/ayushanand27/xhire/internal/infra/persistence/gorm"
	"github.com/ayushanand27/xhire/internal/infra/setup"
	"github.com/ayushanand27/xhire/internal/service"
)

var rootCmd = &cobra.Command{
	Use:          "xhire",
	Short:        "Interview room server: REST API, realtime gateway and background worker",
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP/WebSocket server and the task worker",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap.LoadConfig()
		if err != nil {
			return err
		}
		log := bootstrap.NewLogger(cfg)
		db, err := bootstrap.OpenDB(cfg, log)
		if err != nil {
			return err
		}
		if err := setup.MigrateDB(db); err != nil {
			return err
		}
		log.Info("Database migrated")
		return nil
	},
}

var (
	tokenName  string
	tokenEmail string
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Print a bearer token for a local identity (development only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap.LoadConfig()
		if err != nil {
			return err
		}
		if cfg.Production() {
			return fmt.Errorf("token issuing is disabled in production")
		}
		log := bootstrap.NewLogger(cfg)
		db, err := bootstrap.OpenDB(cfg, log)
		if err != nil {
			return err
		}
		identity, err := service.NewIdentityService(gormpersistence.NewGormUserRepository(db), cfg.JWTSecret, tokenTTL)
		if err != nil {
			return err
		}
		token, err := identity.IssueToken(args[0], tokenName, tokenEmail)
		if err != nil {
			return err
		}
		// Provision up front so the user can be referenced before their first request.
		claims, err := identity.VerifyToken(token)
		if err != nil {
			return err
		}
		user, err := identity.Provision(cmd.Context(), claims)
		if err != nil {
			return err
		}
		log.WithField("user_id", user.ID).Info("User provisioned")
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "display name claim")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := bootstrap.NewApp()
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	if err := app.Start(); err != nil {
		app.Shutdown()
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutdown signal received")

	app.Shutdown()
	return nil
}
