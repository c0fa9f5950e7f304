// Package hostsession implements the Host Session state machine of
// spec.md §4.6: connect, declare routes, dispatch inbound RPCs, and
// drive reconnection plus resend on recovery.
package hostsession
