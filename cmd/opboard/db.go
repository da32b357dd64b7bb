package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omlean/opboard/internal/config"
	"github.com/omlean/opboard/internal/users"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Credential database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the credential database",
		Long:  "Migrates the user table and seeds the default admin account when the table is empty.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "opboard.yaml", "path to Opboard config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := users.Connect(cfg.Credentials)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Connected to %s credential store\n", cfg.Credentials.Driver)

	if err := users.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintln(out, "Migrated user table")

	created, err := users.NewStore(gormDB).EnsureDefaultAdmin()
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintln(out, "Seeded default admin account (admin/admin123) — change the password.")
	} else {
		fmt.Fprintln(out, "Accounts already present, nothing seeded.")
	}

	fmt.Fprintln(out, "\nCredential database initialized successfully.")
	return nil
}
