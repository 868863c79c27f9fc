package raindrop

import (
	"strings"

	"github.com/MrSnakeDoc/dropwatch/internal/domain"
)

// toBookmark applies the placeholders for absent fields. Present but empty
// fields are kept untouched.
func toBookmark(it raindropItem) *domain.Bookmark {
	b := &domain.Bookmark{
		ID:          strings.TrimSpace(string(it.ID)),
		Title:       orDefault(it.Title, domain.NoTitle),
		URL:         orDefault(it.Link, domain.NoLink),
		Description: orDefault(it.Excerpt, domain.NoDescription),
	}
	if len(it.Tags) > 0 {
		b.Tags = append([]string(nil), it.Tags...)
	}
	return b
}

func orDefault(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}
