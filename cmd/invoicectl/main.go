// invoicectl extracts invoice data from files on disk without a database:
// the same acquisition, extraction and workbook generation the daemon runs,
// pointed at explicit paths.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arhammirker1/invoiceai/constants"
	"github.com/arhammirker1/invoiceai/internal/acquire"
	"github.com/arhammirker1/invoiceai/internal/common"
	"github.com/arhammirker1/invoiceai/internal/export"
	"github.com/arhammirker1/invoiceai/internal/extract"
	"github.com/arhammirker1/invoiceai/internal/ocr"
)

var verbose bool

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "invoicectl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoicectl",
		Short: "Invoice extraction CLI",
		Long: `invoicectl runs the invoice extraction pipeline against local files:
it reads a PDF or scanned image, pulls out the header fields and line items,
and writes an Excel workbook next to the input (or wherever -o points).`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.AddCommand(
		newProcessCmd(),
		newTextCmd(),
	)
	return cmd
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newSelector wires the same fallback chains the daemon uses, configured
// from the environment.
func newSelector(logger *slog.Logger) (*acquire.Selector, *ocr.Rasterizer) {
	cfg := common.LoadConfig()
	runner := ocr.ExecRunner{}
	rasterizer := ocr.NewRasterizer(cfg.OCR.Pdftoppm, cfg.OCR.DPI, cfg.OCR.MaxPages, runner)
	engine := ocr.NewTesseract(cfg.OCR.Tesseract, cfg.OCR.Language, runner, logger)

	pdfChain := acquire.NewChain(logger,
		acquire.NewPDFTextStrategy(logger),
		acquire.NewPDFTableStrategy(logger),
		acquire.NewPDFOCRStrategy(rasterizer, engine, logger),
	)
	imageChain := acquire.NewChain(logger,
		acquire.NewImageOCRStrategy(engine, logger),
	)
	return acquire.NewSelector(pdfChain, imageChain), rasterizer
}

func newProcessCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "process <file>...",
		Short: "Extract invoice data and write an Excel workbook per file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := newLogger()
			selector, rasterizer := newSelector(logger)
			generator := export.NewGenerator(rasterizer, logger)

			var failed int
			for _, path := range args {
				if err := processFile(ctx, selector, generator, path, outDir); err != nil {
					fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "Directory for generated workbooks (default: next to each input)")
	return cmd
}

func processFile(ctx context.Context, selector *acquire.Selector, generator *export.Generator, path, outDir string) error {
	if !constants.IsAllowedExt(filepath.Ext(path)) {
		return fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}

	res, err := selector.Acquire(ctx, path)
	if err != nil {
		return err
	}

	rec := extract.Fields(res.Text, extract.Options{IncludeBareAmounts: len(res.Tables) == 0})
	if len(res.Tables) > 0 {
		rec.LineItems = extract.CapItems(extract.ItemsFromTables(res.Tables))
	} else {
		rec.LineItems = extract.CapItems(extract.ItemsFromLines(res.Text))
	}

	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(path)
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	outPath := filepath.Join(dir, stem+".xlsx")

	if err := generator.Generate(ctx, rec, path, outPath); err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", path, res.Method)
	printField("invoice number", rec.InvoiceNumber)
	printField("vendor", rec.VendorName)
	if rec.InvoiceDate != nil {
		fmt.Printf("  %-15s %s\n", "date", rec.InvoiceDate.Format("2006-01-02"))
	}
	if rec.TotalAmount != nil {
		fmt.Printf("  %-15s $%s\n", "total", rec.TotalAmount.StringFixed(2))
	}
	fmt.Printf("  %-15s %d\n", "line items", len(rec.LineItems))
	fmt.Printf("  %-15s %s\n", "workbook", outPath)
	return nil
}

func printField(name string, v *string) {
	if v != nil {
		fmt.Printf("  %-15s %s\n", name, *v)
	}
}

func newTextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "text <file>",
		Short: "Print the raw text the pipeline would extract from a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			selector, _ := newSelector(logger)
			res, err := selector.Acquire(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(res.Text)
			return nil
		},
	}
	return cmd
}
