package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gregtusar/papertrader/pkg/indicators"
	"github.com/gregtusar/papertrader/pkg/models"
	"github.com/gregtusar/papertrader/pkg/signal"
)

// loadPrices reads a price series from a .json file (array of numbers or of
// {timestamp, price} objects) or a .csv file (price, or timestamp,price per
// row, optional header).
func loadPrices(path string) ([]models.PricePoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prices: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parseJSONPrices(data)
	case ".csv", ".txt":
		return parseCSVPrices(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported price file %s", path)
	}
}

func parseJSONPrices(data []byte) ([]models.PricePoint, error) {
	var points []models.PricePoint
	if err := json.Unmarshal(data, &points); err == nil {
		return points, nil
	}

	var prices []float64
	if err := json.Unmarshal(data, &prices); err != nil {
		return nil, fmt.Errorf("failed to decode prices: %w", err)
	}
	points = make([]models.PricePoint, len(prices))
	for i, p := range prices {
		points[i] = models.PricePoint{Timestamp: int64(i), Price: p}
	}
	return points, nil
}

func parseCSVPrices(r io.Reader) ([]models.PricePoint, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	points := make([]models.PricePoint, 0, len(records))
	for i, rec := range records {
		if len(rec) == 0 || (len(rec) == 1 && rec[0] == "") {
			continue
		}

		priceField := rec[len(rec)-1]
		price, err := strconv.ParseFloat(priceField, 64)
		if err != nil {
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("line %d: invalid price %q", i+1, priceField)
		}

		ts := int64(len(points))
		if len(rec) > 1 {
			ts, err = strconv.ParseInt(rec[0], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid timestamp %q", i+1, rec[0])
			}
		}
		points = append(points, models.PricePoint{Timestamp: ts, Price: price})
	}
	return points, nil
}

// analyzeSeries runs the indicator pipeline over a full price series.
func analyzeSeries(pair string, points []models.PricePoint) (models.Analysis, error) {
	if len(points) == 0 {
		return models.Analysis{}, fmt.Errorf("no prices")
	}

	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}

	rsi := indicators.RSI(prices)
	macd := indicators.MACD(prices)
	sig := signal.Generate(rsi, macd)

	first, last := prices[0], prices[len(prices)-1]
	change := 0.0
	if first != 0 {
		change = (last - first) / first * 100
	}

	return models.Analysis{
		Pair:           pair,
		Timestamp:      time.Now().UTC(),
		Price:          last,
		PriceChange:    change,
		RSI:            rsi,
		MACD:           macd,
		Signal:         sig,
		Recommendation: signal.Recommend(last, sig),
	}, nil
}
