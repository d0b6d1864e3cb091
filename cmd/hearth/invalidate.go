package main

import (
	"fmt"

	"github.com/Veraticus/hearthledger/internal/cli"
	"github.com/Veraticus/hearthledger/internal/model"
	"github.com/spf13/cobra"
)

func invalidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Force scopes to refetch on their next read",
		Long: `Mark cached scopes stale so the next view refetches from the server.
With --account only that account's scopes are marked (a joint account
fans out to every member); without it everything is marked.`,
		RunE: runInvalidate,
	}

	cmd.Flags().String("account", "", "limit invalidation to one account")
	cmd.Flags().String("period", "", "statement period (default: current month)")

	return cmd
}

func runInvalidate(cmd *cobra.Command, _ []string) error {
	period, err := resolvePeriod(mustString(cmd, "period"))
	if err != nil {
		return err
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	account := mustString(cmd, "account")
	if account != "" {
		if account, err = resolveAccount(app.settings, account); err != nil {
			return err
		}
	}

	// The fan-out is computed against the session's selected period.
	app.session.Select(model.ParseAccountRef(account), period)
	keys := app.coordinator.Invalidate(account)

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Marked %d scopes for refetch", len(keys)))) //nolint:forbidigo // User-facing output
	for _, key := range keys {
		fmt.Println(cli.SubtleStyle.Render("  " + key.String())) //nolint:forbidigo // User-facing output
	}
	return nil
}
