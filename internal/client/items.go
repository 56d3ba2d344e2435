package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"lovelist/internal/model"
)

// UpdateRequest carries the fields to change. Nil fields are left as they are.
type UpdateRequest struct {
	Text *string `json:"text,omitempty"`
	Done *bool   `json:"done,omitempty"`
}

// ListItems reads the item list. While offline it returns the last list read
// with the same filter, or an empty list when nothing was cached.
func (c *Client) ListItems(ctx context.Context, filter model.Filter) ([]model.Item, Result, error) {
	res, err := c.Do(ctx, http.MethodGet, listPath(filter), nil)
	if err != nil {
		return nil, res, err
	}
	items := []model.Item{}
	if len(res.Body) > 0 {
		if err := json.Unmarshal(res.Body, &items); err != nil {
			return nil, res, fmt.Errorf("failed to decode items: %w", err)
		}
	}
	return items, res, nil
}

// CreateItem returns nil and no error when the write was queued.
func (c *Client) CreateItem(ctx context.Context, text string) (*model.Item, error) {
	return c.writeItem(ctx, http.MethodPost, "/items", map[string]string{"text": text})
}

func (c *Client) UpdateItem(ctx context.Context, id int64, req UpdateRequest) (*model.Item, error) {
	return c.writeItem(ctx, http.MethodPut, itemPath(id), req)
}

func (c *Client) DeleteItem(ctx context.Context, id int64) (*model.Item, error) {
	return c.writeItem(ctx, http.MethodDelete, itemPath(id), nil)
}

func (c *Client) ToggleAll(ctx context.Context) (*model.ToggleSummary, error) {
	var out model.ToggleSummary
	ok, err := c.writeDecode(ctx, http.MethodPost, "/items/toggle-all", nil, &out)
	if err != nil || !ok {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ClearCompleted(ctx context.Context) (*model.ClearSummary, error) {
	var out model.ClearSummary
	ok, err := c.writeDecode(ctx, http.MethodPost, "/items/clear-completed", nil, &out)
	if err != nil || !ok {
		return nil, err
	}
	return &out, nil
}

// Stats returns nil and no error when offline with nothing cached.
func (c *Client) Stats(ctx context.Context) (*model.Stats, Result, error) {
	res, err := c.Do(ctx, http.MethodGet, "/stats", nil)
	if err != nil || len(res.Body) == 0 {
		return nil, res, err
	}
	var out model.Stats
	if err := json.Unmarshal(res.Body, &out); err != nil {
		return nil, res, fmt.Errorf("failed to decode stats: %w", err)
	}
	return &out, res, nil
}

func (c *Client) writeItem(ctx context.Context, method, path string, body any) (*model.Item, error) {
	var item model.Item
	ok, err := c.writeDecode(ctx, method, path, body, &item)
	if err != nil || !ok {
		return nil, err
	}
	return &item, nil
}

// writeDecode reports false when the write was queued instead of delivered.
func (c *Client) writeDecode(ctx context.Context, method, path string, body, out any) (bool, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = data
	}

	res, err := c.Do(ctx, method, path, payload)
	if err != nil {
		return false, err
	}
	if res.Queued {
		return false, nil
	}
	if len(res.Body) > 0 {
		if err := json.Unmarshal(res.Body, out); err != nil {
			return false, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return true, nil
}

func listPath(filter model.Filter) string {
	values := url.Values{}
	if filter.Done != nil {
		values.Set("done", strconv.FormatBool(*filter.Done))
	}
	if filter.Query != "" {
		values.Set("q", filter.Query)
	}
	if len(values) == 0 {
		return "/items"
	}
	return "/items?" + values.Encode()
}

func itemPath(id int64) string {
	return "/items/" + strconv.FormatInt(id, 10)
}
