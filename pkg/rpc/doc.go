// Package rpc implements spec.md §4.2's duplex RPC layer: correlation-id
// dispatch of both host-initiated and orchestrator-initiated calls over a
// single ports.Socket, with JSON Schema validation of method payloads via
// santhosh-tekuri/jsonschema (see DESIGN.md).
package rpc
