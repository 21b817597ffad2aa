package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"StockBrain/internal/domain/models"
	drepo "StockBrain/internal/domain/repository"
	xhttp "StockBrain/pkg/http"
	"StockBrain/pkg/logger"
	"StockBrain/pkg/util"
)

// searchOutputSize is how many raw matches are requested before filtering down to US common stock.
const searchOutputSize = 30

type tdSymbol struct {
	Symbol         string `json:"symbol"`
	InstrumentName string `json:"instrument_name"`
	Exchange       string `json:"exchange"`
	Country        string `json:"country"`
	Currency       string `json:"currency"`
	CurrencyBase   string `json:"currency_base"`
	InstrumentType string `json:"instrument_type"`
	Type           string `json:"type"`
}

type tdSearchResponse struct {
	Status  string     `json:"status"`
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    []tdSymbol `json:"data"`
}

// usCommonStock keeps listings a forecast makes sense for. The endpoint has
// reported the currency and type under two different keys over time.
func (s tdSymbol) usCommonStock() bool {
	country := strings.ToLower(s.Country)
	if country != "us" && country != "united states" {
		return false
	}
	currency := s.Currency
	if currency == "" {
		currency = s.CurrencyBase
	}
	kind := s.InstrumentType
	if kind == "" {
		kind = s.Type
	}
	return strings.EqualFold(currency, "USD") && strings.EqualFold(kind, "Common Stock")
}

// SearchSymbols returns up to limit US common stock listings matching query.
func (c *Client) SearchSymbols(ctx context.Context, query string, limit int) ([]models.SymbolMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return nil, nil
	}

	var resp tdSearchResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/symbol_search",
		QueryParams: map[string][]string{
			"symbol":     {query},
			"outputsize": {strconv.Itoa(searchOutputSize)},
			"apikey":     {c.apiKey},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("twelvedata symbol_search %q: %w", query, err)
	}
	if resp.Status == "error" {
		return nil, apiError(query, resp.Code, resp.Message)
	}

	out := make([]models.SymbolMatch, 0, limit)
	for _, s := range resp.Data {
		if !s.usCommonStock() {
			continue
		}
		currency := s.Currency
		if currency == "" {
			currency = s.CurrencyBase
		}
		out = append(out, models.SymbolMatch{
			Symbol:   s.Symbol,
			Name:     s.InstrumentName,
			Exchange: s.Exchange,
			Country:  s.Country,
			Currency: currency,
			Type:     "Common Stock",
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type tdQuote struct {
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	Datetime      string `json:"datetime"`
	Close         string `json:"close"`
	Volume        string `json:"volume"`
	PreviousClose string `json:"previous_close"`
	Change        string `json:"change"`
	PercentChange string `json:"percent_change"`
	Status        string `json:"status"`
	Code          int    `json:"code"`
	Message       string `json:"message"`
}

func (q tdQuote) toQuote() (models.Quote, error) {
	price, err := util.ParseDecimal(q.Close)
	if err != nil {
		return models.Quote{}, fmt.Errorf("close %q: %w", q.Close, err)
	}
	out := models.Quote{Symbol: q.Symbol, Name: q.Name, Price: price, Date: q.Datetime}
	if q.Volume != "" {
		out.Volume, _ = util.ParseDecimal(q.Volume)
	}

	change, errC := util.ParseDecimal(q.Change)
	pct, errP := util.ParseDecimal(q.PercentChange)
	if errC == nil && errP == nil {
		out.Change, out.ChangePercent = change, pct
		return out, nil
	}
	// older plans omit change fields, derive them from the previous close
	if prev, err := util.ParseDecimal(q.PreviousClose); err == nil && prev > 0 {
		out.Change, out.ChangePercent = models.PriceChange(prev, price)
	}
	return out, nil
}

// GetQuotes fetches the latest quote of every symbol in one call. Symbols the
// vendor rejects are skipped; an error is returned only when none resolve.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) ([]models.Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	joined := strings.Join(symbols, ",")

	var body []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/quote",
		QueryParams: map[string][]string{
			"symbol": {joined},
			"apikey": {c.apiKey},
		},
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("twelvedata quote %s: %w", joined, err)
	}

	entries, err := quoteEntries(body)
	if err != nil {
		return nil, fmt.Errorf("twelvedata quote %s: %w", joined, err)
	}

	out := make([]models.Quote, 0, len(symbols))
	for _, sym := range symbols {
		q, ok := entries[strings.ToUpper(sym)]
		if !ok {
			c.l.Warn("twelvedata quote missing", logger.String("symbol", sym))
			continue
		}
		if q.Status == "error" {
			c.l.Warn("twelvedata quote rejected", logger.String("symbol", sym), logger.String("message", q.Message))
			continue
		}
		quote, err := q.toQuote()
		if err != nil {
			c.l.Warn("twelvedata skip quote", logger.String("symbol", sym), logger.Error(err))
			continue
		}
		if quote.Symbol == "" {
			quote.Symbol = sym
		}
		out = append(out, quote)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("twelvedata quote %s: %w", joined, drepo.ErrSymbolNotFound)
	}
	return out, nil
}

// quoteEntries indexes a quote body by upper-case symbol. A single symbol is
// answered with a bare object, several with an object keyed by symbol.
func quoteEntries(body []byte) (map[string]tdQuote, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}

	_, single := raw["symbol"]
	_, failed := raw["status"]
	if single || failed {
		var q tdQuote
		if err := json.Unmarshal(body, &q); err != nil {
			return nil, fmt.Errorf("decode quote: %w", err)
		}
		if q.Status == "error" && q.Symbol == "" {
			return nil, apiError("quote", q.Code, q.Message)
		}
		return map[string]tdQuote{strings.ToUpper(q.Symbol): q}, nil
	}

	out := make(map[string]tdQuote, len(raw))
	for key, msg := range raw {
		var q tdQuote
		if err := json.Unmarshal(msg, &q); err != nil {
			return nil, fmt.Errorf("decode quote %s: %w", key, err)
		}
		out[strings.ToUpper(key)] = q
	}
	return out, nil
}

var _ drepo.MarketDirectory = (*Client)(nil)
