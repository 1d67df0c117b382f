package shopify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// InventoryLevel is the available count of one inventory item at one
// location.
type InventoryLevel struct {
	InventoryItemID int64 `json:"inventory_item_id"`
	LocationID      int64 `json:"location_id"`
	Available       int   `json:"available"`
}

type inventoryLevelsResponse struct {
	InventoryLevels []InventoryLevel `json:"inventory_levels"`
}

// InventoryLevels returns the stock levels of one inventory item across
// locations. An untracked item comes back empty without error.
func (c *Client) InventoryLevels(ctx context.Context, inventoryItemID int64) ([]InventoryLevel, error) {
	query := url.Values{"inventory_item_ids": {strconv.FormatInt(inventoryItemID, 10)}}
	var resp inventoryLevelsResponse
	if err := c.do(ctx, http.MethodGet, "/inventory_levels.json", query, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch inventory levels for item %d: %w", inventoryItemID, err)
	}
	return resp.InventoryLevels, nil
}

// SetInventoryLevel pins an inventory item's available count at a
// location.
func (c *Client) SetInventoryLevel(ctx context.Context, inventoryItemID, locationID int64, available int) error {
	body := map[string]any{
		"location_id":       locationID,
		"inventory_item_id": inventoryItemID,
		"available":         available,
	}
	if err := c.do(ctx, http.MethodPost, "/inventory_levels/set.json", nil, body, nil); err != nil {
		return fmt.Errorf("set inventory for item %d: %w", inventoryItemID, err)
	}
	return nil
}
