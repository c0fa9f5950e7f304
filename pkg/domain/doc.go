// Package domain holds the data model shared by every layer of the host
// runtime: routes, actions, pages, transactions and the wire envelopes that
// carry them. It has no dependency on transport, RPC, or persistence — those
// layers depend on domain, never the reverse.
package domain
