package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"zonetrends/internal/api"
	"zonetrends/internal/auth"
	"zonetrends/internal/service"
	"zonetrends/internal/store"
	"zonetrends/internal/tui"
)

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "zonetrends",
		Short:         "Heart rate zone trends for Strava accounts",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDashboard(cmd, flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/.zonetrends/config.json)")
	pf.StringVar(&flags.dbPath, "db", "", "account database (default ~/.zonetrends/data.db)")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		newLoginCmd(flags),
		newAccountsCmd(flags),
		newReportCmd(flags),
		newServeCmd(flags),
	)
	return root
}

// handled turns errConfigCreated into a clean exit
func handled(err error) error {
	if errors.Is(err, errConfigCreated) {
		return nil
	}
	return err
}

func runDashboard(cmd *cobra.Command, flags *globalFlags) error {
	a, err := setup(flags, cmd.OutOrStdout(), nil, tuiLogFile())
	if err != nil {
		return handled(err)
	}
	defer a.Close()

	program := tea.NewProgram(tui.NewApp(a.zones, a.db, a.cfg.Window.DefaultDays), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

func newLoginCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "login <name>",
		Short: "Link a Strava account under a local name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(flags, cmd.OutOrStdout(), cmd.ErrOrStderr(), "")
			if err != nil {
				return handled(err)
			}
			defer a.Close()

			name := args[0]
			flow := &auth.Flow{
				Config: auth.NewOAuthConfig(a.cfg.Strava, auth.RedirectURL),
				Out:    cmd.OutOrStdout(),
				Logger: a.logger,
			}
			result, err := flow.Authenticate(cmd.Context())
			if err != nil {
				return fmt.Errorf("authentication: %w", err)
			}

			err = a.db.SaveAccount(&store.Account{
				Name:         name,
				AthleteID:    result.AthleteID,
				AccessToken:  result.Token.AccessToken,
				RefreshToken: result.Token.RefreshToken,
				ExpiresAt:    result.Token.Expiry,
			})
			if err != nil {
				return fmt.Errorf("saving account: %w", err)
			}
			a.clients.Forget(name)
			a.cache.Forget(name)

			fmt.Fprintf(cmd.OutOrStdout(), "\nLinked athlete %d as %q.\n", result.AthleteID, name)
			return nil
		},
	}
}

func newAccountsCmd(flags *globalFlags) *cobra.Command {
	list := &cobra.Command{
		Use:   "accounts",
		Short: "List linked accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(flags, cmd.OutOrStdout(), cmd.ErrOrStderr(), "")
			if err != nil {
				return handled(err)
			}
			defer a.Close()

			accounts, err := a.db.ListAccounts()
			if err != nil {
				return fmt.Errorf("listing accounts: %w", err)
			}
			printAccounts(cmd.OutOrStdout(), accounts, time.Now())
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <name>",
		Short: "Forget a linked account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(flags, cmd.OutOrStdout(), cmd.ErrOrStderr(), "")
			if err != nil {
				return handled(err)
			}
			defer a.Close()

			name := args[0]
			if err := a.db.DeleteAccount(name); err != nil {
				if errors.Is(err, store.ErrAccountNotFound) {
					return fmt.Errorf("no account named %q", name)
				}
				return fmt.Errorf("removing account: %w", err)
			}
			a.clients.Forget(name)
			a.cache.Forget(name)
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %q.\n", name)
			return nil
		},
	}

	list.AddCommand(remove)
	return list
}

func printAccounts(w io.Writer, accounts []store.Account, now time.Time) {
	if len(accounts) == 0 {
		fmt.Fprintln(w, "No accounts linked. Run `zonetrends login <name>`.")
		return
	}
	for _, acct := range accounts {
		token := "token expires " + humanize.RelTime(acct.ExpiresAt, now, "ago", "from now")
		if !acct.ExpiresAt.After(now) {
			token = "token refresh due"
		}
		fmt.Fprintf(w, "%-20s athlete %-10d %s\n", acct.Name, acct.AthleteID, token)
	}
}

func newReportCmd(flags *globalFlags) *cobra.Command {
	var account, start, end string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print zone views for one account and date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(flags, cmd.OutOrStdout(), cmd.ErrOrStderr(), "")
			if err != nil {
				return handled(err)
			}
			defer a.Close()

			if account == "" {
				accounts, err := a.db.ListAccounts()
				if err != nil {
					return fmt.Errorf("listing accounts: %w", err)
				}
				if len(accounts) != 1 {
					return errors.New("--account is required unless exactly one account is linked")
				}
				account = accounts[0].Name
			}

			from, to, err := service.ParseWindow(start, end, time.Now(), a.cfg.Window.DefaultDays)
			if err != nil {
				return err
			}

			sum, err := a.zones.Summarize(cmd.Context(), account, from, to)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s to %s  %s\n\n", sum.Account,
				sum.Start.Format(service.DateLayout), sum.End.Format(service.DateLayout), sum.Label())
			fmt.Fprintln(out, tui.RenderSummary(sum))
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "account name")
	cmd.Flags().StringVar(&start, "start", "", "first date, YYYY-MM-DD (default: window.default_days ago)")
	cmd.Flags().StringVar(&end, "end", "", "last date, YYYY-MM-DD (default: today)")
	return cmd
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve zone summaries as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(flags, cmd.OutOrStdout(), cmd.ErrOrStderr(), "")
			if err != nil {
				return handled(err)
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			router := api.NewRouter(api.Deps{
				Zones:      a.zones,
				Accounts:   a.db,
				Metrics:    a.metrics.Handler(),
				Auth:       api.Credentials{User: a.cfg.Server.User, Password: a.cfg.Server.Password},
				WindowDays: a.cfg.Window.DefaultDays,
				Logger:     a.logger,
			})
			server := api.NewServer(addr, router, cmd.OutOrStdout())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errs := make(chan error, 1)
			go func() {
				a.logger.Info("server_listening", "addr", addr, "basic_auth", a.cfg.Server.User != "")
				errs <- server.ListenAndServe()
			}()

			select {
			case err := <-errs:
				return fmt.Errorf("serving: %w", err)
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			a.logger.Info("server_stopping")
			return server.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	return cmd
}
