package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	gsheet "zenbank/internal/sheets/google"
	"zenbank/internal/worker"
)

const authTimeout = 5 * time.Minute

func newLedgerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Manage the Google Sheets ledger mirror",
	}
	cmd.AddCommand(
		newLedgerAuthCmd(),
		newLedgerReconcileCmd(a),
	)
	return cmd
}

// newLedgerAuthCmd runs the OAuth consent flow for a desktop client and
// saves the user token the worker reads when no service account is set.
func newLedgerAuthCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize Sheets access with a Google account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := gsheet.OAuthConfigFromEnv()
			if err != nil {
				return err
			}
			// The OAuth client must list this URI as an authorized redirect.
			cfg.RedirectURL = "http://localhost:" + port + "/callback"

			ctx, cancel := context.WithTimeout(cmd.Context(), authTimeout)
			defer cancel()

			state := uuid.NewString()
			code, err := awaitCode(ctx, ":"+port, state, func() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Open this URL to authorize:\n%s\n",
					cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))
			})
			if err != nil {
				return err
			}

			tok, err := cfg.Exchange(ctx, code)
			if err != nil {
				return fmt.Errorf("token exchange: %w", err)
			}
			path := gsheet.TokenFileFromEnv()
			if err := gsheet.SaveToken(path, tok); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s token to %s\n", styles.ok.Render("saved"), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&port, "port", "8085", "local port for the OAuth redirect")
	return cmd
}

// awaitCode serves the OAuth redirect until a code with the expected state
// arrives or ctx ends.
func awaitCode(ctx context.Context, addr, state string, ready func()) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen for oauth redirect: %w", err)
	}

	type result struct {
		code string
		err  error
	}
	results := make(chan result, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res result
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("oauth error: %s", q.Get("error"))
		case q.Get("state") != state:
			res.err = errors.New("oauth state mismatch")
		default:
			res.code = q.Get("code")
		}
		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			_, _ = fmt.Fprintln(w, "You may close this window and return to the terminal.")
		}
		select {
		case results <- res:
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() { _ = srv.Close() }()

	ready()
	select {
	case res := <-results:
		return res.code, res.err
	case <-ctx.Done():
		return "", fmt.Errorf("authorization: %w", ctx.Err())
	}
}

func newLedgerReconcileCmd(a *app) *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Replay recent history of every account into the ledger",
		Long:  "reconcile appends the newest entries of every account to the ledger; entries already mirrored are skipped. Without GOOGLE_SPREADSHEET_ID the replay only counts entries.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			ledger, err := a.factory.CreateLedger(ctx, a.cfg.GoogleSpreadsheetID, a.cfg.LedgerSheetName)
			if err != nil {
				return err
			}
			if depth <= 0 {
				depth = a.cfg.LedgerReconcileDepth
			}
			n, err := worker.NewLedgerWorker(b.Repository, ledger, depth, a.logger).Reconcile(ctx)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d ledger entries reconciled\n", n)
			return err
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 0, "entries per account (default LEDGER_RECONCILE_DEPTH)")
	return cmd
}
