package models

import "time"

// Conversation groups the prompts of one user thread. Its title is fixed at
// creation.
type Conversation struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
}

func (c *Conversation) RecordID() string      { return c.ID }
func (c *Conversation) SetRecordID(id string) { c.ID = id }
func (c *Conversation) Stamp(now time.Time)   { stamp(&c.CreatedAt, now) }

func (c *Conversation) Columns() []string {
	return []string{"id", "user_id", "title", "created_at"}
}

func (c *Conversation) Values() []any {
	return []any{c.ID, c.UserID, c.Title, c.CreatedAt}
}

func (c *Conversation) ScanDest() []any {
	return []any{&c.ID, &c.UserID, &c.Title, &c.CreatedAt}
}
