package models

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type SafetyCheck struct {
	Passed   bool     `json:"passed"`
	Reason   string   `json:"reason"`
	Severity Severity `json:"severity"`
}

// Blocking reports whether the check prevents execution.
func (c SafetyCheck) Blocking() bool {
	return c.Severity == SeverityError && !c.Passed
}

type SafetyChecks struct {
	PriceImpact    SafetyCheck `json:"priceImpact"`
	Slippage       SafetyCheck `json:"slippage"`
	RouteCount     SafetyCheck `json:"routeCount"`
	OutputAmount   SafetyCheck `json:"outputAmount"`
	LiquidityDepth SafetyCheck `json:"liquidityDepth"`
}

// Named returns the checks in report order.
func (c SafetyChecks) Named() []NamedCheck {
	return []NamedCheck{
		{Name: "priceImpact", Check: c.PriceImpact},
		{Name: "slippage", Check: c.Slippage},
		{Name: "routeCount", Check: c.RouteCount},
		{Name: "outputAmount", Check: c.OutputAmount},
		{Name: "liquidityDepth", Check: c.LiquidityDepth},
	}
}

type NamedCheck struct {
	Name  string
	Check SafetyCheck
}

type SafetyCheckResult struct {
	Safe   bool         `json:"safe"`
	Checks SafetyChecks `json:"checks"`
}
