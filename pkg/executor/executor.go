// Package executor applies plans to the live catalog. Every mutation
// is preceded by a rollback snapshot of the fields it overwrites, and
// rollback itself runs as a plan through the same apply path.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/oilslick/catops/models"
	"github.com/oilslick/catops/pkg/db"
	"github.com/oilslick/catops/pkg/shopify"
)

// Mode selects how far Apply goes.
type Mode string

const (
	// ModeDryRun validates and describes the plan without touching
	// anything.
	ModeDryRun Mode = "dry-run"

	// ModeExecute snapshots pre-mutation state, then mutates.
	ModeExecute Mode = "execute"

	// ModeRollback mutates without capturing a new snapshot. Used when
	// re-applying a snapshot; undoing a rollback is re-running apply.
	ModeRollback Mode = "rollback"
)

// Catalog is the mutation surface plans are applied through.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, fields map[string]any) (*shopify.UpdateResult, error)
	InventoryLevels(ctx context.Context, inventoryItemID int64) ([]shopify.InventoryLevel, error)
	SetInventoryLevel(ctx context.Context, inventoryItemID, locationID int64, available int) error
}

// SnapshotStore persists pre-mutation state for rollback.
type SnapshotStore interface {
	SaveSnapshot(runID string, productID int64, token string, fields map[string]any) (string, bool, error)
	GetSnapshot(token string) (*db.Snapshot, error)
}

var _ Catalog = (*shopify.Client)(nil)
var _ SnapshotStore = (*db.DB)(nil)

// Executor applies plans for one run.
type Executor struct {
	catalog Catalog
	store   SnapshotStore
	runID   string
	log     *slog.Logger
}

// New returns an executor writing snapshots under runID.
func New(catalog Catalog, store SnapshotStore, runID string, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{catalog: catalog, store: store, runID: runID, log: logger}
}

// Apply carries out one plan. It never panics and never aborts a batch:
// every failure comes back as a classified ExecutionResult.
func (e *Executor) Apply(ctx context.Context, p *models.Plan, mode Mode) models.ExecutionResult {
	if !p.Mutates() {
		return models.ExecutionResult{Success: true, Message: "no changes planned"}
	}

	fields, err := mutationFields(p)
	if err != nil {
		return models.ExecutionResult{Message: err.Error(), ErrorType: models.ErrPermanent}
	}

	if mode == ModeDryRun {
		return models.ExecutionResult{Success: true, Message: "dry-run: " + changeSummary(p)}
	}

	// Snapshot before mutating. A restore plan re-applies a snapshot,
	// so it never captures one.
	var token string
	var before *models.Product
	if mode == ModeExecute && p.Action != models.ActionRestore {
		before, err = e.catalog.GetProduct(ctx, p.ProductID)
		if err != nil {
			return models.ExecutionResult{
				Message:   fmt.Sprintf("failed to fetch product %d before mutation: %v", p.ProductID, err),
				ErrorType: classify(err),
			}
		}
		token, _, err = e.store.SaveSnapshot(e.runID, p.ProductID, uuid.NewString(), snapshotFields(p.Action, before))
		if err != nil {
			// Never mutate without a snapshot on record.
			return models.ExecutionResult{
				Message:   fmt.Sprintf("failed to save rollback snapshot: %v", err),
				ErrorType: models.ErrTransient,
			}
		}
	}

	result, err := e.catalog.UpdateProduct(ctx, p.ProductID, fields)
	if err != nil {
		return models.ExecutionResult{
			Message:   fmt.Sprintf("failed to update product %d: %v", p.ProductID, err),
			ErrorType: classify(err),
		}
	}
	if !result.OK() {
		return models.ExecutionResult{
			Message:   "catalog rejected update: " + strings.Join(result.Errors, "; "),
			ErrorType: models.ErrPermanent,
		}
	}

	if mode == ModeExecute && p.Action == models.ActionVariantSet {
		e.propagateInventory(ctx, result.Product, before)
	}

	e.log.Info("plan applied",
		"product_id", p.ProductID,
		"action", string(p.Action),
		"rollback_token", token)
	return models.ExecutionResult{Success: true, Message: changeSummary(p), RollbackToken: token}
}

// Rollback loads a snapshot by token and re-applies it.
func (e *Executor) Rollback(ctx context.Context, token string) models.ExecutionResult {
	snap, err := e.store.GetSnapshot(token)
	if err != nil {
		return models.ExecutionResult{Message: err.Error(), ErrorType: models.ErrPermanent}
	}
	return e.Apply(ctx, RestorePlan(snap), ModeRollback)
}

// RestorePlan turns a snapshot back into an applyable plan.
func RestorePlan(snap *db.Snapshot) *models.Plan {
	return &models.Plan{
		ProductID:     snap.ProductID,
		Action:        models.ActionRestore,
		Changes:       []string{fmt.Sprintf("restore %d fields from snapshot %s", len(snap.Fields), snap.Token)},
		Restore:       &models.RestorePayload{Token: snap.Token, Fields: snap.Fields},
		LimitsChecked: true,
	}
}

// mutationFields renders a plan's payload as the field map the catalog
// update takes.
func mutationFields(p *models.Plan) (map[string]any, error) {
	switch p.Action {
	case models.ActionVariantSet:
		if p.Variant == nil {
			return nil, fmt.Errorf("variant-set plan for product %d has no payload", p.ProductID)
		}
		options := make([]map[string]any, len(p.Variant.Options))
		for i, o := range p.Variant.Options {
			options[i] = map[string]any{"name": o.Name, "values": o.Values, "position": i + 1}
		}
		variants := make([]map[string]any, len(p.Variant.Variants))
		for i, v := range p.Variant.Variants {
			m := map[string]any{
				"price":             v.Price,
				"sku":               v.SKU,
				"taxable":           v.Taxable,
				"requires_shipping": v.RequiresShipping,
				"grams":             v.Grams,
			}
			if v.Option1 != "" {
				m["option1"] = v.Option1
			}
			if v.Option2 != "" {
				m["option2"] = v.Option2
			}
			if v.Option3 != "" {
				m["option3"] = v.Option3
			}
			variants[i] = m
		}
		return map[string]any{"options": options, "variants": variants}, nil

	case models.ActionCuration:
		if p.Curation == nil {
			return nil, fmt.Errorf("curation plan for product %d has no payload", p.ProductID)
		}
		return map[string]any{"status": p.Curation.Status, "title": p.Curation.Title}, nil

	case models.ActionDiscount:
		if p.Discount == nil {
			return nil, fmt.Errorf("discount plan for product %d has no payload", p.ProductID)
		}
		variants := make([]map[string]any, len(p.Discount.Prices))
		for i, pr := range p.Discount.Prices {
			// The pre-discount price becomes compare-at so the sale
			// shows as a markdown.
			variants[i] = map[string]any{"id": pr.VariantID, "price": pr.New, "compare_at_price": pr.Old}
		}
		return map[string]any{"variants": variants}, nil

	case models.ActionRestore:
		if p.Restore == nil || len(p.Restore.Fields) == 0 {
			return nil, fmt.Errorf("restore plan for product %d has no snapshot fields", p.ProductID)
		}
		return p.Restore.Fields, nil
	}
	return nil, fmt.Errorf("no mutation defined for action %s", p.Action)
}

// snapshotFields captures exactly the fields the action overwrites.
func snapshotFields(action models.Action, before *models.Product) map[string]any {
	switch action {
	case models.ActionVariantSet:
		options := make([]map[string]any, len(before.Options))
		for i, o := range before.Options {
			options[i] = map[string]any{"name": o.Name, "values": o.Values, "position": i + 1}
		}
		variants := make([]map[string]any, len(before.Variants))
		for i, v := range before.Variants {
			m := map[string]any{
				"price":             v.Price,
				"sku":               v.SKU,
				"taxable":           v.Taxable,
				"requires_shipping": v.RequiresShipping,
				"grams":             v.Grams,
				"compare_at_price":  nilIfEmpty(v.CompareAtPrice),
			}
			if v.Option1 != "" {
				m["option1"] = v.Option1
			}
			if v.Option2 != "" {
				m["option2"] = v.Option2
			}
			if v.Option3 != "" {
				m["option3"] = v.Option3
			}
			variants[i] = m
		}
		return map[string]any{"options": options, "variants": variants}

	case models.ActionCuration:
		return map[string]any{"status": before.Status, "title": before.Title}

	case models.ActionDiscount:
		variants := make([]map[string]any, len(before.Variants))
		for i, v := range before.Variants {
			variants[i] = map[string]any{
				"id":               v.ID,
				"price":            v.Price,
				"compare_at_price": nilIfEmpty(v.CompareAtPrice),
			}
		}
		return map[string]any{"variants": variants}
	}
	return nil
}

// nilIfEmpty maps an unset price string to JSON null, which is how the
// API clears a compare-at price on restore.
func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// propagateInventory gives each newly created variant the same stock
// level as the variant it replaced. Failures here are warnings; the
// variants exist either way and stock can be fixed by hand.
func (e *Executor) propagateInventory(ctx context.Context, updated, before *models.Product) {
	if updated == nil || before == nil || len(before.Variants) == 0 {
		return
	}
	sourceItemID := before.Variants[0].InventoryItemID
	if sourceItemID == 0 {
		return
	}

	levels, err := e.catalog.InventoryLevels(ctx, sourceItemID)
	if err != nil {
		e.log.Warn("could not read source inventory level",
			"product_id", updated.ID, "error", err)
		return
	}
	if len(levels) == 0 {
		return
	}
	locationID, available := levels[0].LocationID, levels[0].Available

	for i := range updated.Variants {
		v := &updated.Variants[i]
		if v.InventoryItemID == 0 || v.InventoryItemID == sourceItemID {
			continue
		}
		if err := e.catalog.SetInventoryLevel(ctx, v.InventoryItemID, locationID, available); err != nil {
			e.log.Warn("could not set inventory for new variant",
				"product_id", updated.ID, "variant_id", v.ID, "error", err)
		}
	}
}

func changeSummary(p *models.Plan) string {
	if len(p.Changes) == 0 {
		return string(p.Action)
	}
	return strings.Join(p.Changes, "; ")
}

// classify buckets a Go error for the item record. API rejections are
// permanent; everything else (network, timeout, exhausted retries) is
// transient.
func classify(err error) string {
	var apiErr *shopify.APIError
	if errors.As(err, &apiErr) {
		return models.ErrPermanent
	}
	return models.ErrTransient
}
