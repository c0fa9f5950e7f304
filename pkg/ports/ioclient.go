package ports

import "context"

// IOClient is the handler-visible surface for sending a render instruction
// and awaiting the user's response. The full ergonomic I/O builder (typed
// input prompts, tables, forms, etc.) is an external collaborator per
// spec.md §1; this is the narrow contract the runtime wires into it.
type IOClient interface {
	// Send delivers an opaque, already-serialized render instruction and
	// blocks until the orchestrator either responds or the transaction
	// is closed/canceled.
	Send(ctx context.Context, renderInstruction string) (string, error)

	// Group returns a child IOClient scoped to a nested render group
	// (spec.md §4.5 step 5, "If children is present, drive it through the
	// IOClient group").
	Group() IOClient

	// RegisterInlineAction records an inline-action key. Per spec.md §9
	// Open Question (d) this hook is preserved but never exercised.
	RegisterInlineAction(key string)
}
