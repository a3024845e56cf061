package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregtusar/papertrader/pkg/models"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadPrices_JSONNumbers(t *testing.T) {
	points, err := loadPrices(writeFile(t, "p.json", "[1.5, 2, 2.5]"))
	require.NoError(t, err)

	require.Len(t, points, 3)
	assert.Equal(t, 2.5, points[2].Price)
	assert.Equal(t, int64(2), points[2].Timestamp)
}

func TestLoadPrices_JSONPoints(t *testing.T) {
	points, err := loadPrices(writeFile(t, "p.json", `[{"timestamp": 1700000000000, "price": 101.2}]`))
	require.NoError(t, err)

	require.Len(t, points, 1)
	assert.Equal(t, models.PricePoint{Timestamp: 1700000000000, Price: 101.2}, points[0])
}

func TestLoadPrices_CSV(t *testing.T) {
	points, err := loadPrices(writeFile(t, "p.csv", "timestamp,price\n1000,10.5\n2000,11\n"))
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.Equal(t, int64(2000), points[1].Timestamp)
	assert.Equal(t, 11.0, points[1].Price)

	points, err = loadPrices(writeFile(t, "single.csv", "10\n11\n12\n"))
	require.NoError(t, err)
	assert.Len(t, points, 3)
}

func TestLoadPrices_Errors(t *testing.T) {
	_, err := loadPrices(writeFile(t, "p.csv", "price\n10\nabc\n"))
	assert.ErrorContains(t, err, "line 3")

	_, err = loadPrices(writeFile(t, "p.xml", "<prices/>"))
	assert.Error(t, err)

	_, err = loadPrices(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestAnalyzeSeries(t *testing.T) {
	flat := strings.TrimSuffix(strings.Repeat("100,", 40), ",")
	points, err := parseJSONPrices([]byte("[" + flat + "]"))
	require.NoError(t, err)

	a, err := analyzeSeries("SOL/USDC", points)
	require.NoError(t, err)
	assert.Equal(t, "SOL/USDC", a.Pair)
	assert.Equal(t, 100.0, a.Price)
	assert.Equal(t, 0.0, a.PriceChange)
	assert.Equal(t, models.CrossoverNeutral, a.MACD.Crossover)

	_, err = analyzeSeries("SOL/USDC", nil)
	assert.Error(t, err)
}
