package models

// SymbolMatch is one listing returned by a symbol search.
type SymbolMatch struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Country  string `json:"country"`
	Currency string `json:"currency"`
	Type     string `json:"type"`
}

// Quote is the latest close of a symbol and its move against the previous close.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name,omitempty"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        float64 `json:"volume"`
	Date          string  `json:"date,omitempty"`
}

type SymbolSearchRequest struct {
	Query string `query:"q" json:"q" validate:"required,max=32"`
	Limit int    `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=10"`
}

// QuotesRequest takes a comma separated list, e.g. symbols=AAPL,MSFT.
type QuotesRequest struct {
	Symbols string `query:"symbols" json:"symbols" validate:"required,max=200"`
}

// PriceChange is the absolute and percent move from prev to cur. prev must be positive.
func PriceChange(prev, cur float64) (change, percent float64) {
	change = cur - prev
	return change, change / prev * 100
}

// QuoteFromBars builds a quote from the last two bars of a chronological
// history. With a single bar the change is zero.
func QuoteFromBars(symbol string, bars []PriceBar) (Quote, bool) {
	n := len(bars)
	if n == 0 {
		return Quote{}, false
	}
	last := bars[n-1]
	q := Quote{Symbol: symbol, Price: last.Price, Volume: last.Volume, Date: last.Date}
	if n > 1 && bars[n-2].Price > 0 {
		q.Change, q.ChangePercent = PriceChange(bars[n-2].Price, last.Price)
	}
	return q, true
}
