// Package chunk describes indexed document fragments.
package chunk

import (
	"fmt"
	"strings"
)

// Record is one embedded chunk of an uploaded document.
type Record struct {
	TenantID     string
	DocumentID   string
	DocumentName string
	ChunkIndex   int
	Content      string
	Visible      bool
	Vector       []float32
}

// Filter narrows a similarity search. Empty IDs do not filter.
type Filter struct {
	TenantID   string
	DocumentID string
}

// Snippet renders a record as "<document> chunk#<n> <content>".
// The tenant ID stands in for a missing document name.
func (r Record) Snippet() string {
	name := strings.TrimSpace(r.DocumentName)
	if name == "" {
		name = r.TenantID
	}
	prefix := fmt.Sprintf("chunk#%d", r.ChunkIndex)
	if name != "" {
		prefix = name + " " + prefix
	}
	return prefix + " " + strings.TrimSpace(r.Content)
}
