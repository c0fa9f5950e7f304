// Package shutdown implements the Shutdown Coordinator of spec.md §5:
// quiesce new work, wait for in-flight transactions and pages to drain,
// then force-close, triggered either by an explicit call or an OS signal.
package shutdown
