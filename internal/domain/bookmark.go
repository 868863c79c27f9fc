package domain

import "strings"

// Placeholders used when a field is missing from the source payload.
const (
	NoTitle       = "No title"
	NoLink        = "No link"
	NoTags        = "No tags"
	NoDescription = "No description"
)

// Bookmark represents the newest item saved on the bookmarking service.
// It is immutable once fetched.
type Bookmark struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	// ID is the opaque remote identifier, used only for equality.
	// Raindrop returns an integer; it is kept in its decimal string form.
	ID string

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	// Title of the saved page. NoTitle when absent.
	Title string

	// URL of the saved page. NoLink when absent.
	URL string

	// Tags in the order the service returned them. May be empty.
	Tags []string

	// Description is the service excerpt. NoDescription when absent.
	Description string
}

// TagLine joins tags with ", " or returns NoTags for an empty list.
func (b *Bookmark) TagLine() string {
	if len(b.Tags) == 0 {
		return NoTags
	}
	return strings.Join(b.Tags, ", ")
}
