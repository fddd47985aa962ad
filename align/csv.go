package align

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hubdemarcel/ClimateTrade-sub002/market"
)

// LoadWeatherCSV reads weather records from a CSV with rows
//
//	time,location,source,field,value
//
// where time is RFC3339 or RFC3339Nano. One row carries one
// measurement. A header row ("time,...") is allowed; empty and short
// rows are skipped.
func LoadWeatherCSV(path string) ([]market.WeatherRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var out []market.WeatherRecord
	sawFirst := false
	for {
		row, err := r.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 {
			continue
		}
		if !sawFirst {
			sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		rec, ok, err := parseWeatherRow(row)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, rec)
	}
}

// LoadMarketCSV reads market ticks from a CSV with rows
//
//	time,market_id,outcome,source,probability,volume
//
// with the same timestamp and header handling as LoadWeatherCSV.
func LoadMarketCSV(path string) ([]market.MarketRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var out []market.MarketRecord
	sawFirst := false
	for {
		row, err := r.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 {
			continue
		}
		if !sawFirst {
			sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		rec, ok, err := parseMarketRow(row)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, rec)
	}
}

func parseWeatherRow(row []string) (market.WeatherRecord, bool, error) {
	// Need: time,location,source,field,value
	if len(row) < 5 {
		return market.WeatherRecord{}, false, nil
	}

	t, ok, err := parseTime(row[0])
	if err != nil || !ok {
		return market.WeatherRecord{}, false, err
	}

	loc := strings.TrimSpace(row[1])
	field := strings.TrimSpace(row[3])
	if loc == "" || field == "" {
		return market.WeatherRecord{}, false, nil
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(row[4]), 64)
	if err != nil {
		return market.WeatherRecord{}, false, fmt.Errorf("bad value %q: %w", row[4], err)
	}

	return market.WeatherRecord{
		Time:     t,
		Location: loc,
		Source:   strings.TrimSpace(row[2]),
		Fields:   map[string]float64{field: v},
	}, true, nil
}

func parseMarketRow(row []string) (market.MarketRecord, bool, error) {
	// Need: time,market_id,outcome,source,probability,volume
	if len(row) < 6 {
		return market.MarketRecord{}, false, nil
	}

	t, ok, err := parseTime(row[0])
	if err != nil || !ok {
		return market.MarketRecord{}, false, err
	}

	id := strings.TrimSpace(row[1])
	outcome := strings.TrimSpace(row[2])
	if id == "" || outcome == "" {
		return market.MarketRecord{}, false, nil
	}

	prob, err := strconv.ParseFloat(strings.TrimSpace(row[4]), 64)
	if err != nil {
		return market.MarketRecord{}, false, fmt.Errorf("bad probability %q: %w", row[4], err)
	}
	vol, err := strconv.ParseFloat(strings.TrimSpace(row[5]), 64)
	if err != nil {
		return market.MarketRecord{}, false, fmt.Errorf("bad volume %q: %w", row[5], err)
	}

	return market.MarketRecord{
		Time:        t,
		MarketID:    id,
		Outcome:     market.Outcome(outcome),
		Source:      strings.TrimSpace(row[3]),
		Probability: prob,
		Volume:      vol,
	}, true, nil
}

func parseTime(s string) (time.Time, bool, error) {
	ts := strings.TrimSpace(s)
	if ts == "" {
		return time.Time{}, false, nil
	}
	// Accept RFC3339 or RFC3339Nano.
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t2, err2 := time.Parse(time.RFC3339Nano, ts)
		if err2 != nil {
			return time.Time{}, false, fmt.Errorf("bad time %q: %w", ts, err)
		}
		t = t2
	}
	return t, true, nil
}
