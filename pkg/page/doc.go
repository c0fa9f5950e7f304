// Package page implements the Page Manager of spec.md §4.5: long-lived
// rendering sessions with a coalescing send state machine that guarantees
// at most one SEND_PAGE call in flight per pageKey.
package page
