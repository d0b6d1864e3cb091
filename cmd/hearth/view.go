package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/hearthledger/internal/cli"
	"github.com/Veraticus/hearthledger/internal/common"
	"github.com/Veraticus/hearthledger/internal/config"
	"github.com/Veraticus/hearthledger/internal/model"
	"github.com/spf13/cobra"
)

func viewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Show the merged working set for an account and period",
		Long: `Fetch actual and projected transactions for one account and statement
period and display them as a single merged list, projected rows first,
newest first within each group.

With --offline the last locally saved snapshot is shown instead of
contacting the server.`,
		RunE: runView,
	}

	cmd.Flags().String("account", "", "account to view (a household member or \"joint\")")
	cmd.Flags().String("period", "", "statement period (default: current month)")
	cmd.Flags().Bool("offline", false, "show the last saved snapshot without contacting the server")

	return cmd
}

func runView(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	settings := config.NewSettings()
	account, err := resolveAccount(settings, mustString(cmd, "account"))
	if err != nil {
		return err
	}
	period, err := resolvePeriod(mustString(cmd, "period"))
	if err != nil {
		return err
	}

	if mustBool(cmd, "offline") {
		return runViewOffline(cmd, settings, account, period)
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.selectScope(ctx, account, period); err != nil {
		fmt.Println(cli.FormatWarning("server unreachable, try --offline")) //nolint:forbidigo // User-facing output
		return fmt.Errorf("failed to load %s/%s: %w", account, period, err)
	}

	rows := app.session.Rows()
	renderRows(account, period, rows, time.Time{})

	// Keep the offline snapshot fresh for this scope.
	snapshots, err := initSnapshots(ctx, settings)
	if err != nil {
		slog.Warn("Snapshot store unavailable, skipping save", "error", err)
		return nil
	}
	defer closeSnapshots(snapshots)
	if err := snapshots.SaveSnapshot(ctx, account, period, rows); err != nil {
		common.LogError(err, "Failed to save snapshot", common.Fields{
			"account": account,
			"period":  string(period),
		})
	}
	return nil
}

func runViewOffline(cmd *cobra.Command, settings *config.Settings, account string, period model.StatementPeriod) error {
	ctx := cmd.Context()

	snapshots, err := initSnapshots(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to open snapshot store: %w", err)
	}
	defer closeSnapshots(snapshots)

	rows, fetchedAt, err := snapshots.GetSnapshot(ctx, account, period)
	if err != nil {
		return fmt.Errorf("no snapshot for %s/%s: %w", account, period, err)
	}

	renderRows(account, period, rows, fetchedAt)
	return nil
}

func renderRows(account string, period model.StatementPeriod, rows []model.Transaction, fetchedAt time.Time) {
	fmt.Println(cli.FormatTitle(fmt.Sprintf("%s · %s", account, period))) //nolint:forbidigo // User-facing output
	if !fetchedAt.IsZero() {
		fmt.Println(cli.SubtleStyle.Render("snapshot from " + fetchedAt.Local().Format("2006-01-02 15:04"))) //nolint:forbidigo // User-facing output
	}
	fmt.Println() //nolint:forbidigo // User-facing output

	if len(rows) == 0 {
		fmt.Println(cli.SubtleStyle.Render("No transactions in this scope.")) //nolint:forbidigo // User-facing output
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil {
			slog.Error("failed to flush table writer", "error", flushErr)
		}
	}()

	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		cli.TableHeaderStyle.Render("Date"),
		cli.TableHeaderStyle.Render("ID"),
		cli.TableHeaderStyle.Render("Name"),
		cli.TableHeaderStyle.Render("Amount"),
		cli.TableHeaderStyle.Render("Category"),
		cli.TableHeaderStyle.Render("Kind"),
		cli.TableHeaderStyle.Render("Account"))

	for _, row := range rows {
		amount := row.Amount.StringFixed(2)
		if row.Amount.IsNegative() {
			amount = cli.NegativeAmountStyle.Render(amount)
		} else {
			amount = cli.PositiveAmountStyle.Render(amount)
		}

		kind := string(row.Source)
		if row.IsNew || row.IsTemp() {
			kind = cli.DraftStyle.Render("draft")
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row.Date.Format("2006-01-02"),
			cli.SubtleStyle.Render(row.ID),
			row.Name,
			amount,
			row.Category,
			kind,
			row.Account)
	}
}

func mustString(cmd *cobra.Command, name string) string {
	value, _ := cmd.Flags().GetString(name)
	return value
}

func mustBool(cmd *cobra.Command, name string) bool {
	value, _ := cmd.Flags().GetBool(name)
	return value
}
