package safety

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gregtusar/papertrader/pkg/models"
)

// Report renders result as a human readable block.
func Report(result models.SafetyCheckResult) string {
	var b strings.Builder

	status := "SAFE"
	if !result.Safe {
		status = "UNSAFE"
	}

	b.WriteString("=== SAFETY CHECK REPORT ===\n")
	fmt.Fprintf(&b, "Overall Status: %s\n", status)
	for _, nc := range result.Checks.Named() {
		fmt.Fprintf(&b, "[%s] %s: %s\n", strings.ToUpper(string(nc.Check.Severity)), nc.Name, nc.Check.Reason)
	}
	b.WriteString("===========================\n")

	return b.String()
}

// LogReport writes one entry per check at a level matching its severity.
func LogReport(logger *logrus.Logger, result models.SafetyCheckResult) {
	for _, nc := range result.Checks.Named() {
		entry := logger.WithFields(logrus.Fields{
			"check":  nc.Name,
			"passed": nc.Check.Passed,
		})
		switch nc.Check.Severity {
		case models.SeverityError:
			entry.Error(nc.Check.Reason)
		case models.SeverityWarning:
			entry.Warn(nc.Check.Reason)
		default:
			entry.Debug(nc.Check.Reason)
		}
	}
	logger.WithField("safe", result.Safe).Info("Safety check complete")
}
