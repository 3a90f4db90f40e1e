package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/petrel-io/ledgermatch/internal/importer"
	"github.com/petrel-io/ledgermatch/internal/parser"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import bank statement files (CSV, OFX/QFX, QIF)",
		Long: `Import bank statement exports into the local store. The format is
detected from the file extension, falling back to content sniffing.
Records already present for the account are skipped, so re-importing an
overlapping export is safe.

Examples:
  ledgermatch import --account acc-123 statement.csv
  ledgermatch import --account acc-123 ~/Downloads/*.qfx
  ledgermatch import --account acc-123 --dry-run january.qif`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().StringP("account", "a", "", "bank account identifier (required)")
	cmd.Flags().BoolP("dry-run", "d", false, "Parse and report without saving")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	accountID, _ := cmd.Flags().GetString("account")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	var files []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, statErr := os.Stat(pattern); statErr == nil {
				files = append(files, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
		} else {
			files = append(files, matches...)
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to import")
	}

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx := cmd.Context()
	if err := application.store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	companyID := application.cfg.CompanyID
	imp := importer.New(application.store)

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Importing statements..."),
	)

	totalImported, totalSkipped, totalErrors := 0, 0, 0
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			slog.Error("Failed to read file", "file", path, "error", err)
			totalErrors++
			_ = bar.Add(1)
			continue
		}
		if len(raw) == 0 {
			slog.Error("File is empty", "file", path)
			totalErrors++
			_ = bar.Add(1)
			continue
		}

		p, source, err := parser.ForFile(path, raw)
		if err != nil {
			slog.Error("Unsupported statement format", "file", path, "error", err)
			totalErrors++
			_ = bar.Add(1)
			continue
		}

		candidates, parseErrors := p.Parse(raw, accountID, companyID)
		for _, msg := range parseErrors {
			slog.Warn("Parse error", "file", filepath.Base(path), "detail", msg)
		}
		totalErrors += len(parseErrors)

		if dryRun {
			slog.Info("Dry run, not saving",
				"file", filepath.Base(path),
				"format", source,
				"parsed", len(candidates),
				"parse_errors", len(parseErrors))
			_ = bar.Add(1)
			continue
		}

		report, err := imp.ImportBatch(ctx, candidates, accountID, companyID)
		if err != nil {
			return fmt.Errorf("import of %s failed: %w", filepath.Base(path), err)
		}
		totalImported += report.Imported
		totalSkipped += report.Skipped
		totalErrors += report.ErrorCount
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	if dryRun {
		fmt.Println("Dry run complete, nothing saved")
		return nil
	}

	fmt.Printf("Imported %d transactions (%d duplicates skipped, %d errors)\n",
		totalImported, totalSkipped, totalErrors)
	return nil
}
