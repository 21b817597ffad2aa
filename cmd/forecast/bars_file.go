package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"StockBrain/internal/domain/models"
	"StockBrain/pkg/util"
)

var errNoPriceColumn = errors.New("csv header has no price or close column")

// loadBars reads a bars file, picking the decoder by extension.
func loadBars(path string) ([]models.PriceBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parseJSONBars(f)
	case ".csv", ".txt":
		return parseCSVBars(f)
	default:
		return nil, fmt.Errorf("unsupported file type %q, want .csv or .json", filepath.Ext(path))
	}
}

func parseJSONBars(r io.Reader) ([]models.PriceBar, error) {
	var raw []models.PriceBar
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json bars: %w", err)
	}
	out := raw[:0]
	for _, b := range raw {
		if b.Price > 0 {
			out = append(out, b.WithDefaults())
		}
	}
	return out, nil
}

type csvColumns struct {
	date, price, open, high, low, volume int
}

// columnsOf matches header names by substring. "close" is taken only when no
// "price" column exists; "adj close" loses to a plain "close".
func columnsOf(header []string) (csvColumns, error) {
	cols := csvColumns{date: -1, price: -1, open: -1, high: -1, low: -1, volume: -1}
	closeCol := -1
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(h, "date") || h == "time" || h == "timestamp":
			if cols.date < 0 {
				cols.date = i
			}
		case strings.Contains(h, "price"):
			if cols.price < 0 {
				cols.price = i
			}
		case strings.Contains(h, "close"):
			if closeCol < 0 || h == "close" {
				closeCol = i
			}
		case h == "open":
			cols.open = i
		case h == "high":
			cols.high = i
		case h == "low":
			cols.low = i
		case strings.Contains(h, "volume"):
			cols.volume = i
		}
	}
	if cols.price < 0 {
		cols.price = closeCol
	}
	if cols.price < 0 {
		return cols, errNoPriceColumn
	}
	return cols, nil
}

func parseCSVBars(r io.Reader) ([]models.PriceBar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols, err := columnsOf(header)
	if err != nil {
		return nil, err
	}

	var bars []models.PriceBar
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		price, ok := field(rec, cols.price)
		if !ok || price <= 0 {
			continue
		}
		b := models.PriceBar{Price: price}
		if cols.date >= 0 && cols.date < len(rec) {
			b.Date = strings.TrimSpace(rec[cols.date])
		}
		b.Open, _ = field(rec, cols.open)
		b.High, _ = field(rec, cols.high)
		b.Low, _ = field(rec, cols.low)
		b.Volume, _ = field(rec, cols.volume)
		bars = append(bars, b.WithDefaults())
	}
	return bars, nil
}

func field(rec []string, i int) (float64, bool) {
	if i < 0 || i >= len(rec) {
		return 0, false
	}
	s := strings.TrimSpace(strings.ReplaceAll(rec[i], ",", ""))
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return 0, false
	}
	v, err := util.ParseDecimal(s)
	if err != nil {
		return 0, false
	}
	return v, true
}
