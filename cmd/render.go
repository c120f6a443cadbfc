package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	service "github.com/okian/leadscore/internal/app"
	"github.com/okian/leadscore/internal/domain/chart"
	"github.com/okian/leadscore/internal/domain/presentation"
	"github.com/okian/leadscore/internal/domain/scoring"
	"github.com/okian/leadscore/internal/testleads"
	"github.com/okian/leadscore/pkg/logger"
)

type renderOptions struct {
	template     string
	lead         string
	out          string
	layout       string
	date         string
	placeholders bool
}

func newRenderCmd() *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a report locally without calling Zoho",
		Long:  "Normalizes a lead payload, draws the charts and fills a local template. The result is written to --out; nothing is uploaded.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.template, "template", "", "Path to the .pptx template")
	f.StringVar(&opts.lead, "lead", "", "Path to a JSON lead payload (default: built-in sample)")
	f.StringVar(&opts.out, "out", ".", "Output directory")
	f.StringVar(&opts.layout, "layout", "", "Path to a YAML slide layout (default: built-in)")
	f.StringVar(&opts.date, "date", "", "Report date as DD-MM-YYYY (default: today)")
	f.BoolVar(&opts.placeholders, "placeholders", false, "List the placeholders of the layout and exit")
	return cmd
}

func runRender(cmd *cobra.Command, opts *renderOptions) error {
	ctx := cmd.Context()
	log := logger.Named("render")

	layout, err := presentation.LoadLayout(opts.layout)
	if err != nil {
		return err
	}
	if opts.placeholders {
		for _, p := range layout.Placeholders() {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	}
	if opts.template == "" {
		return fmt.Errorf("--template is required")
	}

	now := time.Now()
	if opts.date != "" {
		if now, err = time.Parse(service.ReportDateLayout, opts.date); err != nil {
			return fmt.Errorf("invalid --date %q: %w", opts.date, err)
		}
	}

	template, err := os.ReadFile(opts.template)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}
	raw, err := testleads.LoadPayload(opts.lead)
	if err != nil {
		return err
	}

	res, err := scoring.Normalize(raw)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		log.Warn(ctx, "lead data warning", logger.String("warning", w))
	}
	res.ReportDate = now.Format(service.ReportDateLayout)

	charts, err := chart.NewRenderer().Render(res)
	if err != nil {
		return fmt.Errorf("render charts: %w", err)
	}
	art, err := presentation.NewFiller(layout, presentation.WithClock(func() time.Time { return now })).Fill(template, res, charts)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(opts.out, art.Filename)
	if err := os.WriteFile(path, art.Data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	log.Info(ctx, "report written",
		logger.String("lead_id", res.Lead.LeadID),
		logger.String("path", path),
		logger.Int("bytes", len(art.Data)))
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
