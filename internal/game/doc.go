// Package game implements the client-side reconciliation core for the
// blockagotchi contract: reading the active creature, submitting writes and
// waiting for confirmation, polling until a confirmed write becomes visible
// on the read path, and classifying the result into a single outcome per
// write. The contract is treated as an opaque remote state machine; only the
// observation and reaction logic lives here.
package game
