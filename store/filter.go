package store

// SortOrder represents the sort direction.
type SortOrder int

const (
	// SortAsc sorts in ascending order.
	SortAsc SortOrder = 1
	// SortDesc sorts in descending order.
	SortDesc SortOrder = -1
)

// ListOptions configures listing queries (inbox, sent, contacts).
// The zero value means "no offset, backend default limit, newest first".
type ListOptions struct {
	Limit     int
	Offset    int
	SortOrder SortOrder
}

// Normalize returns the options with backend defaults applied.
func (o ListOptions) Normalize(defaultLimit int) ListOptions {
	if o.Limit <= 0 {
		o.Limit = defaultLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	if o.SortOrder == 0 {
		o.SortOrder = SortDesc
	}
	return o
}
