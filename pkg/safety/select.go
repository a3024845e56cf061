package safety

import (
	"math"

	"github.com/gregtusar/papertrader/pkg/models"
)

// Selection pairs a quote with its safety result.
type Selection struct {
	Quote  *models.Quote
	Safety models.SafetyCheckResult
}

// SelectSafest picks among the safe quotes the one with the largest raw
// output amount. Equal outputs are broken by the smaller absolute price
// impact, then by position in quotes. It returns false when no quote is safe.
func (c *Checker) SelectSafest(quotes []*models.Quote, inputDecimals, outputDecimals int32) (*Selection, bool) {
	var best *Selection

	for _, q := range quotes {
		if q == nil {
			continue
		}
		result := c.CheckQuote(q, inputDecimals, outputDecimals)
		if !result.Safe {
			continue
		}
		if best == nil || better(q, best.Quote) {
			best = &Selection{Quote: q, Safety: result}
		}
	}

	return best, best != nil
}

func better(candidate, current *models.Quote) bool {
	cmp := candidate.RawOutAmount().Cmp(current.RawOutAmount())
	if cmp != 0 {
		return cmp > 0
	}
	return math.Abs(candidate.PriceImpactPercent()) < math.Abs(current.PriceImpactPercent())
}
