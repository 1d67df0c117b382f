package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/oilslick/catops/models"
)

// pageLimit is the Admin API maximum page size.
const pageLimit = 250

type productsResponse struct {
	Products []models.Product `json:"products"`
}

type productResponse struct {
	Product models.Product `json:"product"`
}

type countResponse struct {
	Count int `json:"count"`
}

// ListOptions narrow a product scan.
type ListOptions struct {
	Vendor  string
	Status  string
	SinceID int64
	// Fields trims each product to the named top-level columns.
	Fields []string
}

func (o ListOptions) query(sinceID int64) url.Values {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(pageLimit))
	q.Set("since_id", strconv.FormatInt(sinceID, 10))
	if o.Vendor != "" {
		q.Set("vendor", o.Vendor)
	}
	if o.Status != "" {
		q.Set("status", o.Status)
	}
	if len(o.Fields) > 0 {
		q.Set("fields", strings.Join(o.Fields, ","))
	}
	return q
}

// EachPage walks the full product list in since_id order, invoking fn
// once per page. fn returning an error stops the scan.
func (c *Client) EachPage(ctx context.Context, opts ListOptions, fn func(page []models.Product) error) error {
	sinceID := opts.SinceID
	for {
		var page productsResponse
		if err := c.do(ctx, http.MethodGet, "/products.json", opts.query(sinceID), nil, &page); err != nil {
			return fmt.Errorf("fetch products page after id %d: %w", sinceID, err)
		}
		if len(page.Products) == 0 {
			return nil
		}
		if err := fn(page.Products); err != nil {
			return err
		}
		sinceID = page.Products[len(page.Products)-1].ID
		if len(page.Products) < pageLimit {
			return nil
		}
	}
}

// FetchProducts collects the full (filtered) product list.
func (c *Client) FetchProducts(ctx context.Context, opts ListOptions) ([]models.Product, error) {
	var all []models.Product
	err := c.EachPage(ctx, opts, func(page []models.Product) error {
		all = append(all, page...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// GetProduct fetches one product by id.
func (c *Client) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var resp productResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d.json", id), nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch product %d: %w", id, err)
	}
	return &resp.Product, nil
}

// ProductCount returns the number of products matching the filter.
func (c *Client) ProductCount(ctx context.Context, opts ListOptions) (int, error) {
	q := url.Values{}
	if opts.Vendor != "" {
		q.Set("vendor", opts.Vendor)
	}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	var resp countResponse
	if err := c.do(ctx, http.MethodGet, "/products/count.json", q, nil, &resp); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return resp.Count, nil
}

// UpdateResult carries a mutation response: the updated product when
// the call went through, plus any error list the API embedded in the
// response body instead of the status code.
type UpdateResult struct {
	Product *models.Product
	Errors  []string
}

// OK reports whether the update applied cleanly.
func (r *UpdateResult) OK() bool {
	return r != nil && len(r.Errors) == 0
}

type updateResponse struct {
	Product *models.Product `json:"product"`
	Errors  json.RawMessage `json:"errors"`
}

// UpdateProduct applies a partial field update. Validation failures —
// whether reported as 422 or embedded in a 200 body — come back in
// UpdateResult.Errors, not as a Go error, so batch callers can record
// the item and continue.
func (c *Client) UpdateProduct(ctx context.Context, id int64, fields map[string]any) (*UpdateResult, error) {
	product := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		product[k] = v
	}
	product["id"] = id

	var resp updateResponse
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/products/%d.json", id), nil, map[string]any{"product": product}, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity {
			return &UpdateResult{Errors: embeddedErrors([]byte(apiErr.Body))}, nil
		}
		return nil, fmt.Errorf("update product %d: %w", id, err)
	}
	if len(resp.Errors) > 0 {
		return &UpdateResult{Product: resp.Product, Errors: flattenErrors(resp.Errors)}, nil
	}
	return &UpdateResult{Product: resp.Product}, nil
}

// embeddedErrors extracts the "errors" member of a response body.
func embeddedErrors(body []byte) []string {
	var wrapper struct {
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil || len(wrapper.Errors) == 0 {
		return []string{strings.TrimSpace(string(body))}
	}
	return flattenErrors(wrapper.Errors)
}

// flattenErrors renders the API's error shapes — a bare string, a list,
// or a field-to-messages map — as flat strings.
func flattenErrors(raw json.RawMessage) []string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{s}
	}

	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}

	var byField map[string]any
	if err := json.Unmarshal(raw, &byField); err == nil {
		fields := make([]string, 0, len(byField))
		for field := range byField {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		var out []string
		for _, field := range fields {
			switch v := byField[field].(type) {
			case []any:
				for _, msg := range v {
					out = append(out, fmt.Sprintf("%s: %v", field, msg))
				}
			default:
				out = append(out, fmt.Sprintf("%s: %v", field, v))
			}
		}
		return out
	}

	return []string{strings.TrimSpace(string(raw))}
}
