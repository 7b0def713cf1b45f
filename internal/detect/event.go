// internal/detect/event.go
package detect

import "hostsentry/internal/alert"

// Event is a detector's signal to the dispatcher: either a trigger (a
// watched condition became or remains true) or a clear (a previously true
// condition recovered).
type Event struct {
	Key     string
	Type    alert.Type
	Message string
	// Force bypasses the reminder-interval check for an already-active key.
	Force bool
	// Clear marks a recovery; ClearMessage optionally overrides the
	// record's stored message in the recovery notification.
	Clear        bool
	ClearMessage string
}
