package main

import (
	"fmt"
	"time"

	"github.com/Veraticus/hearthledger/internal/cli"
	"github.com/Veraticus/hearthledger/internal/common"
	"github.com/Veraticus/hearthledger/internal/engine"
	"github.com/Veraticus/hearthledger/internal/model"
	"github.com/spf13/cobra"
)

func editCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a transaction",
		Long: `Change fields on an existing transaction. Only the flags you pass are
changed; everything else keeps its current value. The row keeps its
collection: an actual stays an actual, a projection stays a projection.`,
		Args: cobra.ExactArgs(1),
		RunE: runEdit,
	}

	cmd.Flags().String("account", "", "account the transaction currently belongs to")
	cmd.Flags().String("period", "", "statement period the transaction is in (default: current month)")
	cmd.Flags().String("name", "", "new name")
	cmd.Flags().String("amount", "", "new signed decimal amount")
	cmd.Flags().String("category", "", "new category")
	cmd.Flags().String("criticality", "", "new criticality level")
	cmd.Flags().String("payment-method", "", "new payment method")
	cmd.Flags().String("memo", "", "new memo")
	cmd.Flags().String("date", "", "new transaction date, YYYY-MM-DD")

	return cmd
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id := args[0]

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

	// The coordinator patches against the loaded working set.
	if err := app.selectScope(ctx, account, period); err != nil {
		return fmt.Errorf("failed to load %s/%s: %w", account, period, err)
	}

	patch, err := patchFromFlags(cmd)
	if err != nil {
		return err
	}

	if err := app.coordinator.Update(ctx, id, patch); err != nil {
		return fmt.Errorf("%s: %w", common.UserMessage(err), err)
	}

	fmt.Println(cli.FormatSuccess("Updated " + id)) //nolint:forbidigo // User-facing output
	return nil
}

func patchFromFlags(cmd *cobra.Command) (engine.Patch, error) {
	var patch engine.Patch

	if cmd.Flags().Changed("name") {
		v := mustString(cmd, "name")
		patch.Name = &v
	}
	if cmd.Flags().Changed("amount") {
		amount, err := model.ParseAmount(mustString(cmd, "amount"))
		if err != nil {
			return patch, err
		}
		patch.Amount = &amount
	}
	if cmd.Flags().Changed("category") {
		v := mustString(cmd, "category")
		patch.Category = &v
	}
	if cmd.Flags().Changed("criticality") {
		v := mustString(cmd, "criticality")
		patch.Criticality = &v
	}
	if cmd.Flags().Changed("payment-method") {
		v := mustString(cmd, "payment-method")
		patch.PaymentMethod = &v
	}
	if cmd.Flags().Changed("memo") {
		v := mustString(cmd, "memo")
		patch.Memo = &v
	}
	if cmd.Flags().Changed("date") {
		date, err := time.Parse("2006-01-02", mustString(cmd, "date"))
		if err != nil {
			return patch, fmt.Errorf("invalid --date %q: %w", mustString(cmd, "date"), err)
		}
		patch.Date = &date
	}
	return patch, nil
}
