// Package policy turns heuristic and model signals into a single
// auditable decision. Mutations only ever follow from an act outcome,
// so every rule here errs toward flag or skip when signals disagree.
package policy

import (
	"fmt"

	"github.com/oilslick/catops/models"
)

// Input bundles everything a decision needs.
type Input struct {
	Heuristic models.HeuristicResult
	Model     *models.ModelResult // nil when the router was never consulted

	// Ineligible force-skips the item before any scoring is weighed.
	Ineligible       bool
	IneligibleReason string
}

// Decide applies the gate rules in order:
//
//  1. Eligibility exclusions always win.
//  2. A heuristic score at or above act_now acts on its own.
//  3. A heuristic score at or below skip_now skips on its own.
//  4. A missing or failed model result falls back to the heuristic
//     verdict, downgraded to flag so nothing mutates unconfirmed.
//  5. Otherwise heuristic and model blend by weight; the blend acts at
//     the action threshold, and a sufficiently confident model verdict
//     acts regardless of the blend.
func Decide(in Input, th models.Thresholds) models.Decision {
	h := in.Heuristic

	if in.Ineligible {
		reason := in.IneligibleReason
		if reason == "" {
			reason = "product excluded by eligibility rules"
		}
		return models.Decision{
			Outcome:       models.OutcomeSkip,
			Method:        models.MethodHeuristic,
			CombinedScore: h.Score,
			Reason:        reason,
		}
	}

	if h.Score >= th.ActNow {
		return models.Decision{
			Outcome:       models.OutcomeAct,
			Method:        models.MethodHeuristic,
			CombinedScore: h.Score,
			Reason:        fmt.Sprintf("heuristic score %.2f at or above act threshold %.2f", h.Score, th.ActNow),
		}
	}

	if h.Score <= th.SkipNow {
		return models.Decision{
			Outcome:       models.OutcomeSkip,
			Method:        models.MethodHeuristic,
			CombinedScore: h.Score,
			Reason:        fmt.Sprintf("heuristic score %.2f at or below skip threshold %.2f", h.Score, th.SkipNow),
		}
	}

	if !in.Model.OK() {
		outcome := models.OutcomeSkip
		if h.Verdict {
			outcome = models.OutcomeFlag
		}
		reason := "no model available; heuristic verdict stands unconfirmed"
		if in.Model != nil && in.Model.Err != "" {
			reason = fmt.Sprintf("model call failed (%s); heuristic verdict stands unconfirmed", in.Model.Err)
		}
		return models.Decision{
			Outcome:       outcome,
			Method:        models.MethodFallback,
			CombinedScore: h.Score,
			Reason:        reason,
		}
	}

	m := in.Model

	// Model confidence expresses belief in the verdict either way;
	// fold a negative verdict into a low agreement score.
	modelScore := m.Confidence
	if !m.Verdict {
		modelScore = 1 - m.Confidence
	}
	combined := th.HeuristicWeight*h.Score + th.ModelWeight*modelScore

	if m.Verdict && m.Confidence >= th.ModelOverride {
		return models.Decision{
			Outcome:       models.OutcomeAct,
			Method:        models.MethodModel,
			CombinedScore: combined,
			Reason:        fmt.Sprintf("%s confidence %.2f at or above override threshold %.2f", m.Backend, m.Confidence, th.ModelOverride),
		}
	}

	if combined >= th.Action {
		return models.Decision{
			Outcome:       models.OutcomeAct,
			Method:        models.MethodHybrid,
			CombinedScore: combined,
			Reason:        fmt.Sprintf("blended score %.2f at or above action threshold %.2f", combined, th.Action),
		}
	}

	if m.Verdict {
		return models.Decision{
			Outcome:       models.OutcomeFlag,
			Method:        models.MethodHybrid,
			CombinedScore: combined,
			Reason:        fmt.Sprintf("%s agrees but blended score %.2f is below action threshold %.2f", m.Backend, combined, th.Action),
		}
	}

	return models.Decision{
		Outcome:       models.OutcomeSkip,
		Method:        models.MethodHybrid,
		CombinedScore: combined,
		Reason:        fmt.Sprintf("%s verdict negative with confidence %.2f", m.Backend, m.Confidence),
	}
}
