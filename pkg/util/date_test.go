package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeDate(t *testing.T) {
	got, ok := ParseTime("2024-02-28")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Format(DateLayout) != "2024-02-28" {
		t.Fatalf("unexpected date %v", got)
	}

	got, ok = ParseTime("2024-02-28 15:30:00")
	if !ok || got.Hour() != 15 {
		t.Fatalf("unexpected datetime %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeInvalid(t *testing.T) {
	if _, ok := ParseTime("yesterday"); ok {
		t.Fatalf("expected failure")
	}
}

func TestAddDaysCrossesMonthAndLeapDay(t *testing.T) {
	base := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)
	if got := AddDays(base, 1); got != "2024-02-29" {
		t.Fatalf("got %s", got)
	}
	if got := AddDays(base, 2); got != "2024-03-01" {
		t.Fatalf("got %s", got)
	}
}

func TestRoundPrice(t *testing.T) {
	cases := map[float64]float64{
		101.234:  101.23,
		101.235:  101.24,
		-2.345:   -2.35,
		0.004999: 0,
	}
	for in, want := range cases {
		if got := RoundPrice(in, 2); got != want {
			t.Fatalf("RoundPrice(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestParseDecimal(t *testing.T) {
	got, err := ParseDecimal("187.44000")
	if err != nil || got != 187.44 {
		t.Fatalf("got %v, %v", got, err)
	}
	if _, err := ParseDecimal("n/a"); err == nil {
		t.Fatalf("expected error")
	}
}
