package pollinations

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ModelDescriptor describes one model offered by the text endpoint.
type ModelDescriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Provider    string `json:"provider"`
	Tier        string `json:"tier"`
	Vision      bool   `json:"vision"`
}

// UnmarshalJSON tolerates catalogue entries whose vision flag is encoded as
// a string ("true") rather than a boolean.
func (m *ModelDescriptor) UnmarshalJSON(data []byte) error {
	type plain ModelDescriptor
	var raw struct {
		plain
		Vision json.RawMessage `json:"vision"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = ModelDescriptor(raw.plain)
	m.Vision = false

	v := strings.Trim(strings.TrimSpace(string(raw.Vision)), `"`)
	if v == "" || v == "null" {
		return nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("vision: %w", err)
	}
	m.Vision = b

	return nil
}

// ListModels fetches the model catalogue. Results are never cached; every
// call queries the endpoint. Failures are returned as *RequestError.
func (c *Client) ListModels(ctx context.Context) ([]ModelDescriptor, error) {
	if err := c.Wait(ctx); err != nil {
		return nil, &RequestError{Op: "list models", Err: err}
	}

	var models []ModelDescriptor
	if err := c.GetJSON(ctx, modelsPath, &models); err != nil {
		return nil, &RequestError{Op: "list models", Err: err}
	}

	return models, nil
}
