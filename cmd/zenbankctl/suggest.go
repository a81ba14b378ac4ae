package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"zenbank/internal/cli"
	"zenbank/internal/core"
	"zenbank/internal/log"
	"zenbank/internal/services"
	"zenbank/internal/suggest"
)

func newSuggestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <username> <deposit|withdrawal>",
		Short: "Ask the suggestion engine for three amounts",
		Long:  "suggest runs the same engine the API uses. Anti-repeat only spans invocations when REDIS_URL is set.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := core.ParseTransactionType(args[1])
			if err != nil {
				return err
			}
			b, err := a.open(ctx)
			if err != nil {
				return err
			}
			u, err := b.Repository.GetByUsername(ctx, args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			model, err := cli.BuildRecommender(ctx, a.cfg, a.logger)
			if err != nil {
				a.logger.WarnContext(ctx, "Suggestion provider unavailable, using fallback amounts",
					log.FieldError, err)
				model = nil
			}
			shown, closeShown := cli.BuildShownStore(ctx, a.cfg, nil, a.logger)
			defer func() { _ = closeShown() }()

			engine := suggest.NewEngine(model,
				suggest.WithTimeout(a.cfg.SuggestTimeout),
				suggest.WithLogger(a.logger))
			accounts := services.NewAccountService(b.Repository, nil, shown, a.logger)
			out, err := services.NewSuggestionService(accounts, engine, shown, a.logger).Suggest(ctx, u.ID, t, nil)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderSuggestion(u.Username, t, out))
			return nil
		},
	}
}
