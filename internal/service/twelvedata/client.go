package twelvedata

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"StockBrain/internal/domain/models"
	drepo "StockBrain/internal/domain/repository"
	xhttp "StockBrain/pkg/http"
	"StockBrain/pkg/logger"
	"StockBrain/pkg/util"
)

const maxOutputSize = 5000

type Config struct {
	APIKey          string
	BaseURL         string
	Timeout         time.Duration
	RequestsPerSec  float64
	Burst           int
	MaxRetryElapsed time.Duration
}

// Client reads price history, quotes and symbol listings from TwelveData.
type Client struct {
	apiKey  string
	baseURL string
	http    *xhttp.Client
	l       *logger.Logger
}

func New(cfg Config, l *logger.Logger) *Client {
	if l == nil {
		l = logger.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: xhttp.NewClient(
			xhttp.WithTimeout(timeout),
			xhttp.WithRateLimit(cfg.RequestsPerSec, cfg.Burst),
			xhttp.WithRetry(cfg.MaxRetryElapsed),
		),
		l: l,
	}
}

type tdValue struct {
	Datetime string `json:"datetime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume"`
}

type tdResponse struct {
	Status  string    `json:"status"`
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Values  []tdValue `json:"values"`
}

// GetLatestNBars returns up to n bars in chronological order. TwelveData answers newest first.
func (c *Client) GetLatestNBars(ctx context.Context, symbol string, n int, interval drepo.Interval) ([]models.PriceBar, error) {
	if n <= 0 {
		return nil, nil
	}
	n = min(n, maxOutputSize)

	var resp tdResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/time_series",
		QueryParams: map[string][]string{
			"symbol":     {symbol},
			"interval":   {string(interval)},
			"outputsize": {strconv.Itoa(n)},
			"apikey":     {c.apiKey},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("twelvedata time_series %s: %w", symbol, err)
	}
	if resp.Status == "error" {
		return nil, apiError(symbol, resp.Code, resp.Message)
	}

	bars := make([]models.PriceBar, 0, len(resp.Values))
	for i := len(resp.Values) - 1; i >= 0; i-- {
		bar, err := toBar(resp.Values[i])
		if err != nil {
			c.l.Warn("twelvedata skip row", logger.String("symbol", symbol), logger.Error(err))
			continue
		}
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("twelvedata %s: %w", symbol, drepo.ErrSymbolNotFound)
	}
	return bars, nil
}

// apiError turns a status "error" body into an error, mapping unknown symbols to ErrSymbolNotFound.
func apiError(subject string, code int, message string) error {
	if code == 404 || strings.Contains(strings.ToLower(message), "not found") {
		return fmt.Errorf("twelvedata %s: %w: %s", subject, drepo.ErrSymbolNotFound, message)
	}
	return fmt.Errorf("twelvedata %s: code %d: %s", subject, code, message)
}

func toBar(v tdValue) (models.PriceBar, error) {
	closePrice, err := util.ParseDecimal(v.Close)
	if err != nil {
		return models.PriceBar{}, fmt.Errorf("close %q: %w", v.Close, err)
	}
	if closePrice <= 0 {
		return models.PriceBar{}, fmt.Errorf("non-positive close %s at %s", v.Close, v.Datetime)
	}
	bar := models.PriceBar{Date: v.Datetime, Price: closePrice}
	bar.Open, _ = util.ParseDecimal(v.Open)
	bar.High, _ = util.ParseDecimal(v.High)
	bar.Low, _ = util.ParseDecimal(v.Low)
	if v.Volume != "" {
		bar.Volume, _ = util.ParseDecimal(v.Volume)
	}
	return bar.WithDefaults(), nil
}

var _ drepo.BarSource = (*Client)(nil)
