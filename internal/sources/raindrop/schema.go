package raindrop

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// raindropsResponse is the body of GET /raindrops/{collection}.
type raindropsResponse struct {
	Result       bool           `json:"result"`
	Items        []raindropItem `json:"items"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
}

// raindropItem keeps pointers so that an absent field can be told apart
// from an empty one.
type raindropItem struct {
	ID      itemID   `json:"_id"`
	Title   *string  `json:"title"`
	Link    *string  `json:"link"`
	Tags    []string `json:"tags"`
	Excerpt *string  `json:"excerpt"`
}

// itemID accepts the id as a JSON number or a JSON string.
type itemID string

func (id *itemID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("_id is null")
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("_id: %w", err)
		}
		*id = itemID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("_id: %w", err)
	}
	*id = itemID(n.String())
	return nil
}
