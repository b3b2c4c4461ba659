package models

import "time"

// Prompt is one user turn. Response holds the serialized final answer of the
// AI pipeline and stays nil when the call failed.
type Prompt struct {
	ID             string
	ConversationID string
	Text           string
	Response       *string
	CreatedAt      time.Time
}

func (p *Prompt) RecordID() string      { return p.ID }
func (p *Prompt) SetRecordID(id string) { p.ID = id }
func (p *Prompt) Stamp(now time.Time)   { stamp(&p.CreatedAt, now) }

func (p *Prompt) Columns() []string {
	return []string{"id", "conversation_id", "text", "response", "created_at"}
}

func (p *Prompt) Values() []any {
	return []any{p.ID, p.ConversationID, p.Text, p.Response, p.CreatedAt}
}

func (p *Prompt) ScanDest() []any {
	return []any{&p.ID, &p.ConversationID, &p.Text, &p.Response, &p.CreatedAt}
}
