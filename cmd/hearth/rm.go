package main

import (
	"fmt"

	"github.com/Veraticus/hearthledger/internal/cli"
	"github.com/spf13/cobra"
)

func rmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id>...",
		Short: "Delete transactions",
		Long: `Delete one or more transactions by id. Deletes run in parallel and are
best-effort: a row that fails to delete is reported and left in place
while the rest proceed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRm,
	}

	cmd.Flags().String("account", "", "account the transactions belong to")
	cmd.Flags().String("period", "", "statement period (default: current month)")

	return cmd
}

func runRm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	account, err := resolveAccount(app.settings, mustString(cmd, "account"))
	if err != nil {
		return err
	}
	period, err := resolvePeriod(mustString(cmd, "period"))
	if err != nil {
		return err
	}

	// Rows are deleted out of the loaded working set so each one routes
	// to its owning collection.
	if err := app.selectScope(ctx, account, period); err != nil {
		return fmt.Errorf("failed to load %s/%s: %w", account, period, err)
	}

	removed := app.coordinator.Delete(ctx, args)
	if removed < len(args) {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("removed %d of %d transactions", removed, len(args)))) //nolint:forbidigo // User-facing output
		return fmt.Errorf("%d transactions could not be removed", len(args)-removed)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Removed %d transactions", removed))) //nolint:forbidigo // User-facing output
	return nil
}
