package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"StockBrain/internal/domain/models"
)

// insertChunkSize bounds rows per multi-VALUES insert.
const insertChunkSize = 2000

// scanBars reads (date, open, high, low, close, volume) rows.
func scanBars(rows *sql.Rows, capacity int) ([]models.PriceBar, error) {
	out := make([]models.PriceBar, 0, capacity)
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Price, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// reverseBars flips newest-first query results into chronological order.
func reverseBars(bars []models.PriceBar) {
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
}

// validBars drops rows that can never be trained on, fills missing OHLC and
// collapses repeated dates to the last occurrence. An upsert touching the same
// key twice in one statement is rejected by Postgres.
func validBars(bars []models.PriceBar) []models.PriceBar {
	out := make([]models.PriceBar, 0, len(bars))
	seen := make(map[string]int, len(bars))
	for _, b := range bars {
		if b.Date == "" || b.Price <= 0 {
			continue
		}
		if i, ok := seen[b.Date]; ok {
			out[i] = b.WithDefaults()
			continue
		}
		seen[b.Date] = len(out)
		out = append(out, b.WithDefaults())
	}
	return out
}

// valuesList renders n groups of cols placeholders. Numbered placeholders ($1, $2, ...)
// are used when numbered is set.
func valuesList(n, cols int, numbered bool) string {
	groups := make([]string, n)
	ph := make([]string, cols)
	for i := 0; i < n; i++ {
		for j := 0; j < cols; j++ {
			if numbered {
				ph[j] = fmt.Sprintf("$%d", i*cols+j+1)
			} else {
				ph[j] = "?"
			}
		}
		groups[i] = "(" + strings.Join(ph, ", ") + ")"
	}
	return strings.Join(groups, ",")
}
