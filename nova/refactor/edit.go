package refactor

import (
	"sort"

	"github.com/nova-ide/nova/nova/syntax"
)

// TextEdit replaces the source in [Span.Start, Span.End) with NewText,
// spec §4.5's "sorted, non-overlapping list of per-file text edits with
// normalized ranges".
type TextEdit struct {
	File    string
	Span    syntax.Span
	NewText string
}

// WorkspaceEdit is the output of a successful ChangeSignature call.
type WorkspaceEdit struct {
	Edits []TextEdit
}

// normalize sorts edits by (file, start offset) and verifies no two edits
// in the same file overlap, per spec §4.5 step 6. Overlap here means a
// later edit's start falls strictly before an earlier edit's end.
func normalize(edits []TextEdit) (*WorkspaceEdit, []Conflict) {
	sort.Slice(edits, func(i, j int) bool {
		if edits[i].File != edits[j].File {
			return edits[i].File < edits[j].File
		}
		return edits[i].Span.Start.Offset < edits[j].Span.Start.Offset
	})
	var conflicts []Conflict
	for i := 1; i < len(edits); i++ {
		prev, cur := edits[i-1], edits[i]
		if prev.File != cur.File {
			continue
		}
		if cur.Span.Start.Offset < prev.Span.End.Offset {
			conflicts = append(conflicts, Conflict{
				Kind:    ConflictOverlappingEdits,
				File:    cur.File,
				Span:    cur.Span,
				Message: "edit overlaps a prior edit in the same file",
			})
		}
	}
	if len(conflicts) > 0 {
		return nil, conflicts
	}
	return &WorkspaceEdit{Edits: edits}, nil
}
