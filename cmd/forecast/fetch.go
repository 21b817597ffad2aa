package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	domrepo "StockBrain/internal/domain/repository"
	"StockBrain/internal/service/twelvedata"
	applogger "StockBrain/pkg/logger"

	"github.com/spf13/cobra"
)

func runFetch(cmd *cobra.Command, _ []string) error {
	key := fetchAPIKey
	if key == "" {
		key = os.Getenv("TWELVEDATA_API_KEY")
	}
	if key == "" {
		return errors.New("no api key: pass --api-key or set TWELVEDATA_API_KEY")
	}
	iv := domrepo.Interval(fetchInterval)
	if !domrepo.IsValidInterval(iv) {
		return fmt.Errorf("unsupported interval %q", fetchInterval)
	}

	l, err := applogger.New(&applogger.Config{Level: "warn", Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}
	client := twelvedata.New(twelvedata.Config{
		APIKey:          key,
		BaseURL:         fetchBaseURL,
		Timeout:         fetchTimeout,
		RequestsPerSec:  1,
		Burst:           1,
		MaxRetryElapsed: fetchTimeout,
	}, l)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	bars, err := client.GetLatestNBars(ctx, strings.ToUpper(fetchSymbol), fetchN, iv)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if fetchOut != "" {
		f, err := os.Create(fetchOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(bars); err != nil {
		return err
	}
	if fetchOut != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bars to %s\n", len(bars), fetchOut)
	}
	return nil
}
