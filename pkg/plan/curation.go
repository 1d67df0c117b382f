package plan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oilslick/catops/models"
)

const statusDraft = "draft"

var (
	dollarAmount  = regexp.MustCompile(`\$\d[\d.,]*\s*`)
	separatorRuns = regexp.MustCompile(`(\s*[-|,]\s*){2,}`)
)

// BuildCuration turns a positive wholesale decision into a curation
// plan: hide the listing behind draft status and strip pricing noise
// from its title. A listing already hidden with a clean title yields
// Action none.
func BuildCuration(p models.Product, d models.Decision) models.Plan {
	pl := models.Plan{
		ProductID:    p.ID,
		ProductTitle: p.Title,
		Action:       models.ActionNone,
	}

	if d.Outcome != models.OutcomeAct {
		pl.Reason = fmt.Sprintf("decision outcome is %s, not act", d.Outcome)
		return pl
	}

	cleaned := CleanTitle(p.Title)
	if cleaned == "" {
		cleaned = p.Title
	}

	if !strings.EqualFold(p.Status, statusDraft) {
		was := p.Status
		if was == "" {
			was = "unset"
		}
		pl.Changes = append(pl.Changes, fmt.Sprintf("set status %s (was %s)", statusDraft, was))
	}
	if cleaned != p.Title {
		pl.Changes = append(pl.Changes, fmt.Sprintf("clean title to %q", cleaned))
	}
	if len(pl.Changes) == 0 {
		pl.Reason = "already hidden with a clean title"
		return pl
	}

	pl.Action = models.ActionCuration
	pl.LimitsChecked = true
	pl.Curation = &models.CurationPayload{
		Status: statusDraft,
		Title:  cleaned,
	}
	return pl
}

// CleanTitle strips inline dollar amounts, collapses the separator runs
// they leave behind, and normalizes whitespace.
func CleanTitle(title string) string {
	s := dollarAmount.ReplaceAllString(title, "")
	s = separatorRuns.ReplaceAllString(s, " - ")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, " -|,")
	return s
}
