package ledger

// Aggregate is a request together with every payment linked to it. It is the unit clients
// fetch and reconcile.
type Aggregate struct {
	Request  *Request   `json:"request"`
	Payments []*Payment `json:"payments"`
}
