// Package superjson implements the tagged-meta encoding spec.md refers to
// as "superjson-like": plain JSON plus a sidecar meta map that records
// which paths need special revival on decode (currently: time.Time).
// There is no third-party Go package in the retrieved examples that
// implements this JS-ecosystem convention, so it is hand-rolled here —
// see DESIGN.md for the stdlib-justification entry.
package superjson
