package trader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gregtusar/papertrader/pkg/models"
)

// Session is a point-in-time dump of a paper trading session.
type Session struct {
	Config    Config              `json:"config"`
	Portfolio models.Portfolio    `json:"portfolio"`
	Trades    []models.Trade      `json:"trades"`
	History   models.TradeHistory `json:"history"`
	Timestamp time.Time           `json:"timestamp"`
}

func (pt *PaperTrader) Session() Session {
	trades := pt.Trades()
	return Session{
		Config:    pt.config,
		Portfolio: pt.Portfolio(),
		Trades:    trades,
		History:   ComputeHistory(trades),
		Timestamp: pt.now().UTC(),
	}
}

// SaveSession writes the session as indented JSON into dir and returns the
// file path. An empty name gets a timestamped default.
func (pt *PaperTrader) SaveSession(dir, name string) (string, error) {
	session := pt.Session()
	if name == "" {
		name = fmt.Sprintf("paper-trading-session-%d.json", session.Timestamp.UnixMilli())
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create session dir: %w", err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write session: %w", err)
	}

	pt.logger.WithField("path", path).Info("Session saved")
	return path, nil
}
