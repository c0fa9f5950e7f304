package domain

// IOResponseHandler is the type of the IOResponseHandler fields on
// Transaction and PageSession. pkg/txn routes IO_RESPONSE through its own
// per-transaction waiter channels and neither sets nor calls these fields.
type IOResponseHandler func(value string) error

// Transaction is the live state of a single action invocation, per
// spec.md §3.
type Transaction struct {
	TransactionID              string
	Slug                       string
	User                       User
	Environment                Environment
	Params                     map[string]any
	ParamsMeta                 map[string]any
	DisplayResolvesImmediately bool

	// LoadingState is the last loading payload set for this transaction.
	LoadingState map[string]any

	// IOResponseHandler is not set by pkg/txn (see the type's comment).
	IOResponseHandler IOResponseHandler

	// PendingIOCall is not set by pkg/txn; the pending render instruction
	// is kept only in the pending.Store.
	PendingIOCall string

	// InlineActionKeys tracks keys registered for inline-action support.
	// Per spec.md §9 Open Question (d), this is tracked but never
	// exercised by the dispatch path.
	InlineActionKeys map[string]struct{}

	// RequestID, when set, is the single-shot HTTP/Lambda request this
	// transaction was opened for (pkg/singleshot).
	RequestID string

	logIndex int
}

// NextLogIndex returns the next monotonic per-transaction log index,
// per spec.md §4.8 ("index is per-transaction monotonic, assigned by the
// caller").
func (t *Transaction) NextLogIndex() int {
	idx := t.logIndex
	t.logIndex++
	return idx
}
