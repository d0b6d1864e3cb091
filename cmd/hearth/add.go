package main

import (
	"fmt"
	"time"

	"github.com/Veraticus/hearthledger/internal/cli"
	"github.com/Veraticus/hearthledger/internal/common"
	"github.com/Veraticus/hearthledger/internal/model"
	"github.com/spf13/cobra"
)

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a transaction",
		Long: `Create a transaction in the given account and statement period.

By default the row lands in the actuals collection; pass --projected to
plan it instead. Adding to the joint account may be redistributed by
the server to a member account; the final placement is reported.`,
		RunE: runAdd,
	}

	cmd.Flags().String("account", "", "account the transaction belongs to")
	cmd.Flags().String("period", "", "statement period (default: current month)")
	cmd.Flags().String("name", "", "transaction name (required)")
	cmd.Flags().String("amount", "", "signed decimal amount, negative for spending (required)")
	cmd.Flags().String("category", "", "category")
	cmd.Flags().String("criticality", "", "criticality level")
	cmd.Flags().String("payment-method", "", "payment method (default: account's configured default)")
	cmd.Flags().String("memo", "", "free-form memo")
	cmd.Flags().String("date", "", "transaction date, YYYY-MM-DD (default: today)")
	cmd.Flags().Bool("projected", false, "add to the projected collection instead of actuals")

	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runAdd(cmd *cobra.Command, _ []string) error {
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

	amount, err := model.ParseAmount(mustString(cmd, "amount"))
	if err != nil {
		return err
	}

	date := time.Now()
	if raw := mustString(cmd, "date"); raw != "" {
		date, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", raw, err)
		}
	}

	source := model.SourceBudget
	if mustBool(cmd, "projected") {
		source = model.SourceProjected
	}

	app.session.Select(model.ParseAccountRef(account), period)

	draft := model.Transaction{
		Account:         account,
		StatementPeriod: period,
		Name:            mustString(cmd, "name"),
		Amount:          amount,
		Category:        mustString(cmd, "category"),
		Criticality:     mustString(cmd, "criticality"),
		PaymentMethod:   mustString(cmd, "payment-method"),
		Memo:            mustString(cmd, "memo"),
		Date:            date,
		Source:          source,
	}

	if err := app.coordinator.Create(ctx, draft); err != nil {
		return fmt.Errorf("%s: %w", common.UserMessage(err), err)
	}

	rows := app.session.Rows()
	if len(rows) == 0 {
		return fmt.Errorf("created row missing from working set")
	}
	saved := rows[0]

	msg := fmt.Sprintf("Added %s (%s) to %s/%s as %s",
		saved.Name, saved.Amount.StringFixed(2), saved.Account, saved.StatementPeriod, saved.ID)
	fmt.Println(cli.FormatSuccess(msg)) //nolint:forbidigo // User-facing output

	if saved.Account != account {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("server placed the row on %q, not %q", saved.Account, account))) //nolint:forbidigo // User-facing output
	}
	return nil
}
