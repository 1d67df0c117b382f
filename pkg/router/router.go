// Package router selects and invokes AI backends according to a spend
// policy, normalizes their replies, and records usage in the cost
// ledger. Escalation from the cheap tier to the accurate tier is an
// explicit state machine so callers and tests can see every step.
package router

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/oilslick/catops/models"
	"github.com/oilslick/catops/pkg/ai"
	"github.com/oilslick/catops/pkg/costs"
)

// Confidence assumed when a parsed reply omits the confidence field.
// Sits inside the default escalation band, so a hedging cheap reply
// gets a second opinion. Unparsable replies never reach this value;
// they come back as error results and fall through to the next
// backend instead.
const defaultFallbackConfidence = 0.5

// State is one step of a classification exchange.
type State string

const (
	StateCheapAttempted State = "cheap-attempted"
	StateEscalated      State = "escalated"
	StateResolved       State = "resolved"
)

// Trace records the states a classification passed through, in order.
type Trace struct {
	states []State
}

func (t *Trace) to(s State) {
	t.states = append(t.states, s)
}

// States returns a copy of the visited states.
func (t *Trace) States() []State {
	out := make([]State, len(t.states))
	copy(out, t.states)
	return out
}

// Current returns the last visited state, or "" before any step.
func (t *Trace) Current() State {
	if len(t.states) == 0 {
		return ""
	}
	return t.states[len(t.states)-1]
}

// Config wires a Router.
type Config struct {
	// Backends in priority order within each tier.
	Backends []ai.Backend
	Router   models.RouterConfig
	Prices   ai.PriceTable
	Ledger   *costs.Ledger

	// Media supplies product images to vision-capable tasks. Nil
	// disables media entirely.
	Media  *ai.MediaFetcher
	Logger *slog.Logger
}

// Router routes classification requests to AI backends.
type Router struct {
	backends []ai.Backend
	cfg      models.RouterConfig
	prices   ai.PriceTable
	ledger   *costs.Ledger
	media    *ai.MediaFetcher
	log      *slog.Logger
}

func New(cfg Config) *Router {
	if cfg.Prices == nil {
		cfg.Prices = ai.DefaultPrices()
	}
	if cfg.Ledger == nil {
		cfg.Ledger = costs.NewLedger()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Router{
		backends: cfg.Backends,
		cfg:      cfg.Router,
		prices:   cfg.Prices,
		ledger:   cfg.Ledger,
		media:    cfg.Media,
		log:      cfg.Logger,
	}
}

// Ledger exposes the ledger the router records into.
func (r *Router) Ledger() *costs.Ledger {
	return r.ledger
}

// Classify runs one request through the policy-selected backends and
// returns the final normalized result. A failed exchange is returned
// as an error-carrying ModelResult, never a Go error, so batch callers
// keep iterating.
func (r *Router) Classify(ctx context.Context, req models.ClassifyRequest) *models.ModelResult {
	res, _ := r.ClassifyTrace(ctx, req)
	return res
}

// ClassifyTrace is Classify plus the state trace of the exchange.
func (r *Router) ClassifyTrace(ctx context.Context, req models.ClassifyRequest) (*models.ModelResult, *Trace) {
	trace := &Trace{}
	policy := models.ResolveRoutePolicy(req)

	prompt, err := buildRequest(req)
	if err != nil {
		trace.to(StateResolved)
		return &models.ModelResult{Err: err.Error()}, trace
	}
	if r.media != nil && taskWantsMedia(req.Task) {
		prompt.Media = r.media.Fetch(ctx, req.Product.Images)
	}

	order := r.orderFor(policy)
	first, used := r.tryEach(ctx, order, prompt)
	if first == nil {
		trace.to(StateResolved)
		return &models.ModelResult{Err: "no model backend available"}, trace
	}
	if !first.OK() {
		trace.to(StateResolved)
		return first, trace
	}

	if used.Tier() == ai.TierCheap {
		trace.to(StateCheapAttempted)
	}

	if policy == models.PolicyEscalate && used.Tier() == ai.TierCheap && r.ambiguous(first) {
		if second := r.escalate(ctx, used, prompt, first, trace); second != nil {
			trace.to(StateResolved)
			return second, trace
		}
	}

	trace.to(StateResolved)
	return first, trace
}

// escalate re-runs the prompt on the accurate tier. Returns nil when
// no accurate backend is available or the second call fails, in which
// case the cheap result stands.
func (r *Router) escalate(ctx context.Context, used ai.Backend, prompt ai.Request, first *models.ModelResult, trace *Trace) *models.ModelResult {
	var accurate []ai.Backend
	for _, b := range r.backends {
		if b != used && b.Tier() == ai.TierAccurate {
			accurate = append(accurate, b)
		}
	}
	if len(accurate) == 0 {
		return nil
	}

	trace.to(StateEscalated)
	r.log.Debug("escalating ambiguous result",
		"from", first.Backend,
		"confidence", first.Confidence)

	second, _ := r.tryEach(ctx, accurate, prompt)
	if second == nil || !second.OK() {
		r.log.Warn("escalation failed, keeping cheap-tier result",
			"backend", first.Backend)
		return nil
	}
	second.EscalatedFrom = first
	return second
}

// tryEach invokes backends in order, skipping unavailable ones and
// moving on after a failed call. Returns the first usable result and
// the backend that produced it; (nil, nil) when no backend was
// available, or the last error result when all calls failed.
func (r *Router) tryEach(ctx context.Context, order []ai.Backend, prompt ai.Request) (*models.ModelResult, ai.Backend) {
	var lastErr *models.ModelResult
	var lastBackend ai.Backend
	for _, b := range order {
		if !b.Available() {
			r.log.Debug("backend unavailable", "backend", b.Name())
			continue
		}
		res := r.invoke(ctx, b, prompt)
		if res.OK() {
			return res, b
		}
		lastErr, lastBackend = res, b
	}
	return lastErr, lastBackend
}

// invoke performs one backend call: rate limiting and retries live in
// the backend itself; this layer parses, prices, and records.
func (r *Router) invoke(ctx context.Context, b ai.Backend, prompt ai.Request) *models.ModelResult {
	reply, err := b.Invoke(ctx, prompt)
	if err != nil {
		r.log.Warn("model call failed", "backend", b.Name(), "error", err)
		return &models.ModelResult{Backend: b.Name(), Err: err.Error()}
	}

	res := ai.ParseReply(b.Name(), reply, defaultFallbackConfidence)
	if res.Usage != nil {
		res.Usage.Cost = r.prices.Cost(b.Name(), res.Usage.InputUnits, res.Usage.OutputUnits)
	}
	r.ledger.Record(b.Name(), res.Usage)
	return &res
}

// orderFor arranges backends by tier for the given policy, keeping
// the configured order within each tier. Cheapest-first never buys an
// accurate call: a failed or garbled cheap exchange surfaces as an
// error result for the decision layer rather than falling through to
// the tier the policy excluded.
func (r *Router) orderFor(policy models.RoutePolicy) []ai.Backend {
	lead, tail := ai.TierCheap, ai.TierAccurate
	if policy == models.PolicyAccurate {
		lead, tail = ai.TierAccurate, ai.TierCheap
	}
	ordered := make([]ai.Backend, 0, len(r.backends))
	for _, b := range r.backends {
		if b.Tier() == lead {
			ordered = append(ordered, b)
		}
	}
	if policy == models.PolicyCheapestFirst {
		return ordered
	}
	for _, b := range r.backends {
		if b.Tier() == tail {
			ordered = append(ordered, b)
		}
	}
	return ordered
}

// ambiguous reports whether a cheap-tier result warrants a second
// opinion: mid-band confidence, or the model flagged itself uncertain.
func (r *Router) ambiguous(m *models.ModelResult) bool {
	if v, ok := m.Fields["uncertain"]; ok {
		if flag, ok := v.(bool); ok && flag {
			return true
		}
	}
	return m.Confidence >= r.cfg.EscalateLow && m.Confidence <= r.cfg.EscalateHigh
}

func taskWantsMedia(task models.Task) bool {
	return task == models.TaskVariants || task == models.TaskMatch
}

func buildRequest(req models.ClassifyRequest) (ai.Request, error) {
	switch req.Task {
	case models.TaskVariants, "":
		return ai.Request{
			System: variantsSystem,
			Prompt: classifyPrompt(req.Product),
		}, nil
	case models.TaskWholesale:
		return ai.Request{
			System: wholesaleSystem,
			Prompt: classifyPrompt(req.Product),
		}, nil
	case models.TaskMatch:
		return ai.Request{
			System: matchSystem,
			Prompt: classifyPrompt(req.Product),
		}, nil
	}
	return ai.Request{}, fmt.Errorf("unknown classification task %q", req.Task)
}
