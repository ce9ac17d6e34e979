package core

// OutputItem is one candidate artifact recovered from a completion response
// before verification. Accepted items become Deliverable records; rejected
// attempts are discarded along with their items.
type OutputItem struct {
	Type    DeliverableType `json:"type"`
	Title   string          `json:"title"`
	Content string          `json:"content"`
}
