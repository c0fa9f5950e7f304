package domain

// PageSession is the live state of a long-lived Page rendering session,
// per spec.md §3.
type PageSession struct {
	PageKey     string
	Slug        string
	User        User
	Environment Environment
	Params      map[string]any
	ParamsMeta  map[string]any

	// Current is the latest Layout produced by the page handler, always
	// the value the coalescing state machine will serialize on its next
	// send.
	Current *Layout

	// InFlight and Pending name the spec.md §4.5 coalescing state, but
	// pkg/page does not update them: its per-page coalescer keeps that
	// state itself.
	InFlight bool

	Pending bool

	IOResponseHandler IOResponseHandler
	LoadingState      map[string]any
	InlineActionKeys  map[string]struct{}

	RequestID string
}
