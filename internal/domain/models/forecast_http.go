package models

// Requests for forecast HTTP endpoints. Defined in domain for reuse by the queue jobs and CLI.

type ForecastRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required,symbol"`
	N        int    `query:"n" json:"n" default:"120" validate:"gte=20,lte=5000"`
	Days     int    `query:"days" json:"days" default:"5" validate:"gte=1,lte=30"`
	Epochs   int    `query:"epochs" json:"epochs" default:"2000" validate:"gte=1,lte=20000"`
	Interval string `query:"interval" json:"interval" default:"1day" validate:"oneof=1min 5min 15min 30min 45min 1h 2h 4h 1day 1week 1month"`
	Seed     uint64 `query:"seed" json:"seed,omitempty"` // 0 picks a random seed
}

type InlineForecastRequest struct {
	Symbol string     `json:"symbol" default:"CUSTOM"`
	Bars   []PriceBar `json:"bars" validate:"required,min=20,dive"`
	Days   int        `json:"days" default:"5" validate:"gte=1,lte=30"`
	Epochs int        `json:"epochs" default:"2000" validate:"gte=1,lte=20000"`
}

type BatchForecastRequest struct {
	Symbols  []string `json:"symbols" validate:"required,min=1,max=25,dive,required,symbol"`
	N        int      `json:"n" default:"120" validate:"gte=20,lte=5000"`
	Days     int      `json:"days" default:"5" validate:"gte=1,lte=30"`
	Epochs   int      `json:"epochs" default:"2000" validate:"gte=1,lte=20000"`
	Interval string   `json:"interval" default:"1day" validate:"oneof=1min 5min 15min 30min 45min 1h 2h 4h 1day 1week 1month"`
}

type BarsRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required,symbol"`
	N        int    `query:"n" json:"n" default:"120" validate:"gte=1,lte=5000"`
	Interval string `query:"interval" json:"interval" default:"1day" validate:"oneof=1min 5min 15min 30min 45min 1h 2h 4h 1day 1week 1month"`
}

type JobRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

// BatchItem is one symbol outcome of a batch forecast.
type BatchItem struct {
	Symbol string          `json:"symbol"`
	Report *ForecastReport `json:"report,omitempty"`
	Error  string          `json:"error,omitempty"`
}
