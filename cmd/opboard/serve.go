package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/omlean/opboard/internal/config"
	"github.com/omlean/opboard/internal/dashboard"
	"github.com/omlean/opboard/internal/users"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web board",
		Long:  "Launches the production board web server: kanban view, alerts, history and traceability reports.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "opboard.yaml", "path to Opboard config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := users.Connect(cfg.Credentials)
	if err != nil {
		return err
	}
	if err := users.AutoMigrate(gormDB); err != nil {
		return err
	}

	userStore := users.NewStore(gormDB)
	created, err := userStore.EnsureDefaultAdmin()
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintln(out, "Seeded default admin account (admin/admin123) — change the password.")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	return dashboard.Start(ctx, dashboard.StartOpts{
		Cfg:   cfg,
		Users: userStore,
		Port:  port,
		Out:   out,
	})
}
