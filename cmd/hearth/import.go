package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Veraticus/hearthledger/internal/cli"
	"github.com/Veraticus/hearthledger/internal/common"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Bulk-import a statement file",
		Long: `Upload a bank statement CSV into the actuals collection for one
statement period. The import is atomic: either the server accepts the
file and reports what it imported, or nothing changes.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().String("period", "", "statement period the rows belong to (default: current month)")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	period, err := resolvePeriod(mustString(cmd, "period"))
	if err != nil {
		return err
	}

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open statement file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			slog.Error("failed to close statement file", "error", closeErr)
		}
	}()

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.coordinator.Upload(ctx, file, filepath.Base(args[0]), period)
	if err != nil {
		return fmt.Errorf("%s: %w", common.UserMessage(err), err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d rows into %s (%d skipped)", //nolint:forbidigo // User-facing output
		result.Imported, period, result.Skipped)))
	for _, warning := range result.Warnings {
		fmt.Println(cli.FormatWarning(warning)) //nolint:forbidigo // User-facing output
	}
	return nil
}
