package main

import (
	"fmt"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/omlean/opboard/internal/config"
	"github.com/omlean/opboard/internal/users"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage board accounts",
	}

	cmd.AddCommand(newUserAddCmd())
	cmd.AddCommand(newUserListCmd())
	cmd.AddCommand(newUserUpdateCmd())
	cmd.AddCommand(newUserRmCmd())
	return cmd
}

func openUserStore(configPath string) (*users.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	gormDB, err := users.Connect(cfg.Credentials)
	if err != nil {
		return nil, err
	}
	if err := users.AutoMigrate(gormDB); err != nil {
		return nil, err
	}
	return users.NewStore(gormDB), nil
}

func newUserAddCmd() *cobra.Command {
	var (
		configPath string
		role       string
		stage      string
		password   string
	)

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a board account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserAdd(cmd, configPath, args[0], password, role, stage)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "opboard.yaml", "path to Opboard config file")
	cmd.Flags().StringVarP(&role, "role", "r", "worker", "account role (administrator, planner, worker)")
	cmd.Flags().StringVarP(&stage, "stage", "s", "", "assigned stage for worker accounts")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func runUserAdd(cmd *cobra.Command, configPath, username, password, role, stage string) error {
	out := cmd.OutOrStdout()

	store, err := openUserStore(configPath)
	if err != nil {
		return err
	}

	if password == "" {
		password, err = promptPassword(cmd)
		if err != nil {
			return err
		}
	}

	if err := store.Create(username, password, role, stage); err != nil {
		return err
	}
	fmt.Fprintf(out, "Created account %q with role %s\n", username, role)
	return nil
}

// promptPassword reads a password twice without echo and checks the
// confirmation matches.
func promptPassword(cmd *cobra.Command) (string, error) {
	out := cmd.OutOrStdout()

	fmt.Fprint(out, "Password: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	fmt.Fprint(out, "Confirm password: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	if strings.TrimSpace(string(first)) == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	return string(first), nil
}

func newUserListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List board accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "opboard.yaml", "path to Opboard config file")
	return cmd
}

func runUserList(cmd *cobra.Command, configPath string) error {
	store, err := openUserStore(configPath)
	if err != nil {
		return err
	}

	accounts, err := store.List()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tROLE\tSTAGE")
	for _, a := range accounts {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", a.ID, a.Username, a.Role, a.Stage)
	}
	return w.Flush()
}

func newUserUpdateCmd() *cobra.Command {
	var (
		configPath string
		role       string
		stage      string
		password   string
		askPass    bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an account's password, role or stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid account id %q", args[0])
			}
			return runUserUpdate(cmd, configPath, uint(id), password, role, stage, askPass)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "opboard.yaml", "path to Opboard config file")
	cmd.Flags().StringVarP(&role, "role", "r", "", "new role (empty keeps the current one)")
	cmd.Flags().StringVarP(&stage, "stage", "s", "", "new assigned stage (empty keeps the current one)")
	cmd.Flags().StringVar(&password, "password", "", "new password")
	cmd.Flags().BoolVar(&askPass, "ask-password", false, "prompt for the new password without echo")
	return cmd
}

func runUserUpdate(cmd *cobra.Command, configPath string, id uint, password, role, stage string, askPass bool) error {
	store, err := openUserStore(configPath)
	if err != nil {
		return err
	}

	if askPass && password == "" {
		password, err = promptPassword(cmd)
		if err != nil {
			return err
		}
	}

	if err := store.Update(id, password, role, stage); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated account %d\n", id)
	return nil
}

func newUserRmCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a board account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid account id %q", args[0])
			}
			return runUserRm(cmd, configPath, uint(id))
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "opboard.yaml", "path to Opboard config file")
	return cmd
}

func runUserRm(cmd *cobra.Command, configPath string, id uint) error {
	store, err := openUserStore(configPath)
	if err != nil {
		return err
	}

	if err := store.Delete(id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted account %d\n", id)
	return nil
}
