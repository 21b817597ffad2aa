package main

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	// predict
	predictFile     string
	predictSymbol   string
	predictDays     int
	predictEpochs   int
	predictSeed     uint64
	predictWindow   int
	predictJSON     bool
	predictInterval string

	// fetch
	fetchSymbol   string
	fetchN        int
	fetchInterval string
	fetchOut      string
	fetchAPIKey   string
	fetchBaseURL  string
	fetchTimeout  time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "forecast",
	Short:         "Train the price model locally and forecast from a bars file",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Train on a CSV or JSON bars file and print the forecast",
	Example: `  forecast predict --file aapl.csv --days 5
  forecast predict --file bars.json --epochs 500 --seed 42 --json`,
	Args: cobra.NoArgs,
	RunE: runPredict,
}

var fetchCmd = &cobra.Command{
	Use:     "fetch",
	Short:   "Download price history from TwelveData as JSON",
	Example: `  TWELVEDATA_API_KEY=... forecast fetch --symbol AAPL --n 120 --out aapl.json`,
	Args:    cobra.NoArgs,
	RunE:    runFetch,
}

func init() {
	predictCmd.Flags().StringVarP(&predictFile, "file", "f", "", "bars file (.csv or .json)")
	predictCmd.Flags().StringVar(&predictSymbol, "symbol", "CUSTOM", "symbol shown in the report")
	predictCmd.Flags().IntVarP(&predictDays, "days", "d", 5, "days to forecast (1-30)")
	predictCmd.Flags().IntVarP(&predictEpochs, "epochs", "e", 2000, "maximum training epochs")
	predictCmd.Flags().Uint64Var(&predictSeed, "seed", 0, "random seed, 0 picks one")
	predictCmd.Flags().IntVar(&predictWindow, "window", 10, "lookback window")
	predictCmd.Flags().StringVar(&predictInterval, "interval", "1day", "interval label for the report")
	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "print the report as JSON")
	_ = predictCmd.MarkFlagRequired("file")

	fetchCmd.Flags().StringVarP(&fetchSymbol, "symbol", "s", "", "ticker symbol")
	fetchCmd.Flags().IntVarP(&fetchN, "n", "n", 120, "number of bars")
	fetchCmd.Flags().StringVar(&fetchInterval, "interval", "1day", "bar interval")
	fetchCmd.Flags().StringVarP(&fetchOut, "out", "o", "", "output file, stdout when empty")
	fetchCmd.Flags().StringVar(&fetchAPIKey, "api-key", "", "TwelveData API key (default $TWELVEDATA_API_KEY)")
	fetchCmd.Flags().StringVar(&fetchBaseURL, "base-url", "https://api.twelvedata.com", "TwelveData base URL")
	fetchCmd.Flags().DurationVar(&fetchTimeout, "timeout", 30*time.Second, "request timeout")
	_ = fetchCmd.MarkFlagRequired("symbol")

	rootCmd.AddCommand(predictCmd, fetchCmd)
}
