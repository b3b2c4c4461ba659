// Package models defines the rows persisted by the PromptVision server.
//
// Core rows (Account, Conversation, Prompt, File, Session) implement the
// record store contract: Columns, Values and ScanDest return aligned
// slices, id first. User and RefreshToken belong to the local auth
// provider and are read through dedicated repositories.
package models

import "time"

// stamp sets *t to now when it is still zero.
func stamp(t *time.Time, now time.Time) {
	if t.IsZero() {
		*t = now
	}
}
