// Package txn implements the Transaction Manager of spec.md §4.4: it
// owns the per-transactionId lifecycle from START_TRANSACTION through
// MARK_TRANSACTION_COMPLETE, the handler execution context, and routing
// of inbound IO_RESPONSE/CLOSE_TRANSACTION calls to the right handler.
package txn
