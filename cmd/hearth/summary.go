package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/Veraticus/hearthledger/internal/cli"
	"github.com/spf13/cobra"
)

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show spending per payment method",
		Long: `Fetch the aggregate payment summary across all household members for
one statement period: spending per payment method, plus actual and
projected totals.`,
		RunE: runSummary,
	}

	cmd.Flags().String("period", "", "statement period (default: current month)")

	return cmd
}

func runSummary(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	period, err := resolvePeriod(mustString(cmd, "period"))
	if err != nil {
		return err
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	summary, err := app.client.Summaries().Fetch(ctx, app.settings.MemberAccounts(), period)
	if err != nil {
		return fmt.Errorf("failed to fetch payment summary: %w", err)
	}

	fmt.Println(cli.FormatTitle(fmt.Sprintf("Payment methods · %s", period))) //nolint:forbidigo // User-facing output
	fmt.Println()                                                             //nolint:forbidigo // User-facing output

	methods := make([]string, 0, len(summary.ByPaymentMethod))
	for method := range summary.ByPaymentMethod {
		methods = append(methods, method)
	}
	sort.Strings(methods)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() {
		if flushErr := w.Flush(); flushErr != nil {
			slog.Error("failed to flush table writer", "error", flushErr)
		}
	}()

	for _, method := range methods {
		fmt.Fprintf(w, "%s\t%s\n", method, summary.ByPaymentMethod[method].StringFixed(2))
	}
	fmt.Fprintf(w, "%s\t%s\n", cli.BoldStyle.Render("Total actual"), summary.TotalActual.StringFixed(2))
	fmt.Fprintf(w, "%s\t%s\n", cli.BoldStyle.Render("Total projected"), summary.TotalProjected.StringFixed(2))
	return nil
}
