package models

import "time"

// Step types with special meaning. Any other value is an intermediate
// pipeline step.
const (
	StepTypeInput  = "input"
	StepTypeOutput = "output"
)

// File is the record of a binary asset stored at the media host.
//
// StepIndex is 0 for the input attachment and 1..N for pipeline steps in
// response order. PromptID is nil for standalone uploads.
type File struct {
	ID            string
	UserID        string
	PromptID      *string
	PublicID      string
	Filename      string
	URL           string
	ResourceType  string
	Format        string
	Folder        string
	StepType      string
	StepIndex     int
	ReasoningInfo *string
	CreatedAt     time.Time
}

func (f *File) RecordID() string      { return f.ID }
func (f *File) SetRecordID(id string) { f.ID = id }
func (f *File) Stamp(now time.Time)   { stamp(&f.CreatedAt, now) }

func (f *File) Columns() []string {
	return []string{
		"id", "user_id", "prompt_id", "public_id", "filename", "url", "resource_type",
		"format", "folder", "step_type", "step_index", "reasoning_info", "created_at",
	}
}

func (f *File) Values() []any {
	return []any{
		f.ID, f.UserID, f.PromptID, f.PublicID, f.Filename, f.URL, f.ResourceType,
		f.Format, f.Folder, f.StepType, f.StepIndex, f.ReasoningInfo, f.CreatedAt,
	}
}

func (f *File) ScanDest() []any {
	return []any{
		&f.ID, &f.UserID, &f.PromptID, &f.PublicID, &f.Filename, &f.URL, &f.ResourceType,
		&f.Format, &f.Folder, &f.StepType, &f.StepIndex, &f.ReasoningInfo, &f.CreatedAt,
	}
}
