package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"StockBrain/internal/domain/models"
	domrepo "StockBrain/internal/domain/repository"
	internalrepo "StockBrain/internal/repository"
	"StockBrain/internal/services/forecast"
	"StockBrain/internal/usecase"
	applogger "StockBrain/pkg/logger"
	"StockBrain/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func runPredict(cmd *cobra.Command, _ []string) error {
	bars, err := loadBars(predictFile)
	if err != nil {
		return err
	}

	l, err := applogger.New(&applogger.Config{Level: "warn", Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}

	opts := []forecast.Option{
		forecast.WithWindow(predictWindow),
		forecast.WithEpochs(predictEpochs, forecast.DefaultErrorThreshold),
		forecast.WithLogger(l),
	}
	if predictSeed != 0 {
		opts = append(opts, forecast.WithSeed(predictSeed))
	}
	engine, err := forecast.NewEngine(opts...)
	if err != nil {
		return err
	}

	// local runs keep their metrics off the default registry
	rec := metrics.NewWithRegistry(prometheus.NewRegistry())
	uc := usecase.NewForecastUseCase(nil, engine, internalrepo.NopPublisher{}, rec, l, usecase.ForecastConfig{})

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	report, err := uc.ForecastBars(ctx, predictSymbol, bars, usecase.ForecastParams{
		Days:     predictDays,
		Epochs:   predictEpochs,
		Seed:     predictSeed,
		Interval: domrepo.NormalizeInterval(predictInterval),
	})
	if err != nil {
		return err
	}

	if predictJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return printReport(cmd.OutOrStdout(), report)
}

func printReport(w io.Writer, r *models.ForecastReport) error {
	fmt.Fprintf(w, "%s (%s, %d bars)\n", r.Symbol, r.Interval, r.Bars)
	fmt.Fprintf(w, "current   %.2f\n", r.CurrentPrice)
	fmt.Fprintf(w, "next      %.2f (%+.2f, %+.2f%%)\n", r.PredictedPrice, r.Change, r.ChangePercent)
	fmt.Fprintf(w, "confidence %.1f%% %s, training error %.6f after %d epochs\n\n",
		r.Confidence*100, r.ConfidenceLabel, r.TrainingError, r.Iterations)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tPRICE\tLOW\tHIGH\tCONF")
	for _, d := range r.Days {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.1f%%\n", d.Date, d.Price, d.Lower, d.Upper, d.Confidence)
	}
	return tw.Flush()
}
