package model

import (
	"time"

	"github.com/google/uuid"
)

// ReferenceID identifies an uploaded reference material blob
type ReferenceID string

// NewReferenceID generates a new UUID v4 ReferenceID
func NewReferenceID() ReferenceID {
	return ReferenceID(uuid.New().String())
}

// Reference is uploaded reference material (a company policy, a previous
// assessment, a regulation excerpt) whose text can be cited by requests
type Reference struct {
	ID          ReferenceID
	WorkspaceID string
	Name        string
	ContentType string
	Text        string
	CreatedAt   time.Time
}

// MaxReferenceChars bounds how much of one reference is bound into a prompt
const MaxReferenceChars = 8000

// Excerpt returns the reference text truncated to MaxReferenceChars runes
func (r *Reference) Excerpt() string {
	runes := []rune(r.Text)
	if len(runes) <= MaxReferenceChars {
		return r.Text
	}
	return string(runes[:MaxReferenceChars]) + "\n[...truncated...]"
}
