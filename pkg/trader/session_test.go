package trader

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveSession(t *testing.T) {
	pt := newTestTrader(t, Config{})
	require.True(t, buy(pt, 100, 1).Success)
	require.True(t, pt.ClosePosition("SOL", 120, 0.5).Success)

	dir := filepath.Join(t.TempDir(), "sessions")
	path, err := pt.SaveSession(dir, "")
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "paper-trading-session-"))
	assert.True(t, strings.HasSuffix(path, ".json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var s Session
	require.NoError(t, json.Unmarshal(data, &s))
	assert.Equal(t, 1000.0, s.Config.StartingBalance)
	assert.Len(t, s.Trades, 2)
	assert.Equal(t, 2, s.History.TotalTrades)
	assert.InDelta(t, 10.0, s.History.NetPnL, 1e-9)
	assert.InDelta(t, 0.5, s.Portfolio.Positions["SOL"].Amount, 1e-9)
	assert.Equal(t, testNow, s.Timestamp)
}

func TestSaveSession_NamedFile(t *testing.T) {
	pt := newTestTrader(t, Config{})
	dir := t.TempDir()

	path, err := pt.SaveSession(dir, "final.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "final.json"), path)
	assert.FileExists(t, path)
}
