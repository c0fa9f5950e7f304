// Package singleshot implements the Single-Shot Adapter of spec.md §2
// item 8: for serverless callers (HTTP handlers, Lambda), open exactly
// one connection, serve one requestId's transaction (or one declare
// call), then close. The connection is a full hostsession.Session, which
// reconnects in the background if its socket closes unintentionally while
// the request is being handled.
package singleshot
