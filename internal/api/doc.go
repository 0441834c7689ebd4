// Package api exposes the creature pipeline over REST: session state,
// snapshot reads, creature creation and actions, and the write history
// journal.
package api
