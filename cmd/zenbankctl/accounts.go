package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"zenbank/internal/core"
	"zenbank/internal/idle"
	"zenbank/internal/services"
	"zenbank/internal/session"
)

func newAccountsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   "Inspect and create accounts",
	}

	cmd.AddCommand(
		newAccountsListCmd(a),
		newAccountsShowCmd(a),
		newAccountsCreateCmd(a),
	)
	return cmd
}

func newAccountsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every account with its balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			users, err := b.Repository.List(cmd.Context())
			if err != nil {
				return err
			}
			slices.SortFunc(users, func(x, y core.User) int {
				return strings.Compare(core.UsernameKey(x.Username), core.UsernameKey(y.Username))
			})
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderAccounts(users))
			return nil
		},
	}
}

func newAccountsShowCmd(a *app) *cobra.Command {
	var (
		limit  int
		filter string
	)
	cmd := &cobra.Command{
		Use:   "show <username>",
		Short: "Show an account's profile, totals and recent history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var t core.TransactionType
			if filter != "" {
				parsed, err := core.ParseTransactionType(filter)
				if err != nil {
					return err
				}
				t = parsed
			}
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			u, err := b.Repository.GetByUsername(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderAccount(u, u.History(t, limit)))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "history entries to show (0 for all)")
	cmd.Flags().StringVar(&filter, "type", "", "only show deposit or withdrawal entries")
	return cmd
}

func newAccountsCreateCmd(a *app) *cobra.Command {
	var d core.SignupData
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account with the starting balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			// Signup logs the new account in; the session is discarded.
			sessions := session.NewManager(idle.Config{}, a.logger)
			defer sessions.Close()

			u, _, err := services.NewAuthService(b.Repository, sessions, a.logger).Signup(cmd.Context(), d)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s) with balance %s\n",
				styles.ok.Render("created"), u.Username, u.ID, u.Balance)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&d.Username, "username", "", "login name, at least 3 characters")
	flags.StringVar(&d.Password, "password", "", "password, at least 6 characters")
	flags.StringVar(&d.PIN, "pin", "", "4-digit transaction PIN")
	flags.StringVar(&d.Profile.Name, "name", "", "full name")
	flags.StringVar(&d.Profile.Email, "email", "", "email address")
	flags.StringVar(&d.Profile.Phone, "phone", "", "phone number")
	flags.StringVar(&d.Profile.Address, "address", "", "postal address")
	for _, name := range []string{"username", "password", "pin", "name", "email"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
