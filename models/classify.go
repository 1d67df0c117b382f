package models

// HeuristicResult is the outcome of the cheap, local scoring pass.
type HeuristicResult struct {
	Score   float64  `json:"score"`   // always within [0, 1]
	Signals []string `json:"signals"` // matched rule names, in rule order
	Verdict bool     `json:"verdict"`
}

// Usage records the billable units of a single backend call.
type Usage struct {
	InputUnits  int64   `json:"input_units"`
	OutputUnits int64   `json:"output_units"`
	Cost        float64 `json:"cost"`
}

// ModelResult is the outcome of an AI backend call. A failed call is
// still a ModelResult: Err is set and the rest is zero-valued, so a
// batch never aborts on one bad item.
type ModelResult struct {
	Backend    string         `json:"backend"`
	Verdict    bool           `json:"verdict"`
	Confidence float64        `json:"confidence"` // within [0, 1]
	Rationale  string         `json:"rationale,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"` // never nil on success
	Usage      *Usage         `json:"usage,omitempty"`
	Err        string         `json:"error,omitempty"`
	Raw        string         `json:"-"` // unparsed reply text, for the archive

	// EscalatedFrom points at the cheap-tier result that triggered
	// escalation to this one. Nil for direct calls.
	EscalatedFrom *ModelResult `json:"escalated_from,omitempty"`
}

// OK reports whether the call produced a usable verdict.
func (m *ModelResult) OK() bool {
	return m != nil && m.Err == ""
}

// Outcome is the final disposition of an item.
type Outcome string

const (
	OutcomeSkip Outcome = "skip"
	OutcomeFlag Outcome = "flag"
	OutcomeAct  Outcome = "act"
)

// Method names which signal source produced the decision.
type Method string

const (
	MethodHeuristic Method = "heuristic-only"
	MethodModel     Method = "model"
	MethodHybrid    Method = "hybrid"
	MethodFallback  Method = "fallback"
)

// Decision is the confidence-gated verdict for one item.
type Decision struct {
	Outcome       Outcome `json:"outcome"`
	Method        Method  `json:"method"`
	CombinedScore float64 `json:"combined_score"`
	Reason        string  `json:"reason"`
}

// RoutePolicy selects how the model router spends money.
type RoutePolicy int

const (
	// PolicyEscalate tries the cheap tier and escalates mid-band results.
	PolicyEscalate RoutePolicy = iota
	PolicyCheapestFirst // Cheap tier only, accept whatever it says
	PolicyAccurate      // Straight to the accurate tier
)

// Task names the question the router puts to a backend.
type Task string

const (
	// TaskVariants asks whether a listing hides multiple purchasable
	// variants and, if so, which option sets they form.
	TaskVariants Task = "variants"
	// TaskWholesale asks whether a listing is a wholesale or multi-pack
	// offer rather than a single retail unit.
	TaskWholesale Task = "wholesale"
	// TaskMatch asks whether a listing's images depict the product its
	// title and description sell.
	TaskMatch Task = "match"
)

// ClassifyRequest carries one item into the router.
type ClassifyRequest struct {
	Product Product
	Task    Task
	Policy  RoutePolicy

	// RequireAccurate forces the accurate tier regardless of Policy.
	RequireAccurate bool
}

// ResolveRoutePolicy determines the effective policy for a request.
func ResolveRoutePolicy(req ClassifyRequest) RoutePolicy {
	if req.RequireAccurate {
		return PolicyAccurate
	}
	return req.Policy
}

// ParsePolicy maps a CLI flag value to a RoutePolicy.
func ParsePolicy(s string) (RoutePolicy, bool) {
	switch s {
	case "", "escalate":
		return PolicyEscalate, true
	case "cheapest-first", "cheap":
		return PolicyCheapestFirst, true
	case "accurate":
		return PolicyAccurate, true
	}
	return PolicyEscalate, false
}

func (p RoutePolicy) String() string {
	switch p {
	case PolicyCheapestFirst:
		return "cheapest-first"
	case PolicyAccurate:
		return "accurate"
	default:
		return "escalate"
	}
}
