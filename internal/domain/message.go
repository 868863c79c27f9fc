package domain

// Heading is the first line of every notification.
const Heading = "New Bookmark Added!"

// Field is one labelled line of a notification.
type Field struct {
	Label string
	Value string
}

// Message is the sink-independent notification for one bookmark.
// Sinks only decide how labels are emphasised; content is shared.
type Message struct {
	BookmarkID string
	Heading    string
	Fields     []Field
}

// NewMessage builds the notification for b. Field order is fixed.
func NewMessage(b *Bookmark) Message {
	return Message{
		BookmarkID: b.ID,
		Heading:    Heading,
		Fields: []Field{
			{Label: "Title", Value: b.Title},
			{Label: "Link", Value: b.URL},
			{Label: "Tags", Value: b.TagLine()},
			{Label: "Description", Value: b.Description},
		},
	}
}

// Value returns the value of the field with the given label.
func (m Message) Value(label string) (string, bool) {
	for _, f := range m.Fields {
		if f.Label == label {
			return f.Value, true
		}
	}
	return "", false
}
