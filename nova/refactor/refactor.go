// Package refactor implements spec §4.5's change-signature refactoring: a
// method's name, parameter list, return type, or throws clause is rewritten
// across its override hierarchy, with every affected declaration and call
// site identified the way the teacher's java/at_point.go resolves
// references — lexically, never via full type checking — and a structured
// conflict report returned instead of any edit when the rewrite can't be
// proven safe.
package refactor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nova-ide/nova/nova/index"
	"github.com/nova-ide/nova/nova/syntax"
)

// HierarchyPropagation selects which related declarations a change-signature
// plan also rewrites, spec §4.5 step 2.
type HierarchyPropagation int

const (
	PropagateNone HierarchyPropagation = iota
	PropagateOverrides
	PropagateOverridden
	PropagateBoth
)

// ParamOp is one parameter-list operation in a Plan: either ExistingParam
// (keep, optionally renaming/retyping, an original parameter) or AddParam
// (insert a brand new one). The plan's Parameters slice gives the final
// parameter order.
type ParamOp interface{ isParamOp() }

// ExistingParam keeps the parameter originally at OldIndex, optionally
// renaming or retyping it.
type ExistingParam struct {
	OldIndex int
	NewName  *string
	NewType  *string
}

func (ExistingParam) isParamOp() {}

// AddParam inserts a new parameter. DefaultValue is required — it is the
// expression spliced into every rewritten call site's argument list.
type AddParam struct {
	Name         string
	Type         string
	DefaultValue *string
}

func (AddParam) isParamOp() {}

// Plan is spec §3's ChangeSignature plan.
type Plan struct {
	TargetMethodID       index.SymbolID
	NewName              *string
	Parameters           []ParamOp // nil means "leave the parameter list alone"
	NewReturnType        *string
	NewThrows            []string // nil means "leave the throws clause alone"
	HierarchyPropagation HierarchyPropagation
}

// ConflictKind enumerates spec §4.5 step 3's conflict variants.
type ConflictKind int

const (
	ConflictMissingTarget ConflictKind = iota
	ConflictInvalidParameterIndex
	ConflictAddedParameterMissingDefault
	ConflictRemovedParameterReferenced
	ConflictSignatureCollision
	ConflictAmbiguousCallSite
	ConflictReturnTypeIncompatible
	ConflictOverlappingEdits
	ConflictParseError
)

func (k ConflictKind) String() string {
	switch k {
	case ConflictMissingTarget:
		return "MissingTarget"
	case ConflictInvalidParameterIndex:
		return "InvalidParameterIndex"
	case ConflictAddedParameterMissingDefault:
		return "AddedParameterMissingDefault"
	case ConflictRemovedParameterReferenced:
		return "RemovedParameterReferenced"
	case ConflictSignatureCollision:
		return "SignatureCollision"
	case ConflictAmbiguousCallSite:
		return "AmbiguousCallSite"
	case ConflictReturnTypeIncompatible:
		return "ReturnTypeIncompatible"
	case ConflictOverlappingEdits:
		return "OverlappingEdits"
	case ConflictParseError:
		return "ParseError"
	default:
		return "Unknown"
	}
}

// Conflict identifies one reason a plan can't be safely applied.
type Conflict struct {
	Kind    ConflictKind
	File    string
	Span    syntax.Span
	Message string
}

// ConflictError is returned, instead of a WorkspaceEdit, whenever any
// conflict was found — spec §4.5's "ALL are reported; a non-empty list
// aborts" / "no partial edits are applied".
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	parts := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		parts[i] = c.Kind.String() + ": " + c.Message
	}
	return "change-signature conflicts: " + strings.Join(parts, "; ")
}

// ChangeSignature validates plan against ix and, if no conflict is found,
// returns the WorkspaceEdit that realizes it (spec §4.5).
func ChangeSignature(ix *index.Index, plan Plan) (*WorkspaceEdit, error) {
	target, ok := ix.Symbol(plan.TargetMethodID)
	if !ok || (target.Kind != index.KindMethod && target.Kind != index.KindConstructor) {
		return nil, &ConflictError{Conflicts: []Conflict{{
			Kind:    ConflictMissingTarget,
			Message: fmt.Sprintf("target_method_id %d is not a method or constructor symbol", plan.TargetMethodID),
		}}}
	}

	affected := computeAffected(ix, target, plan.HierarchyPropagation)

	var conflicts []Conflict
	conflicts = append(conflicts, validateParameterOps(target, plan)...)
	conflicts = append(conflicts, validateRemovedParamUsage(ix, target, affected, plan)...)
	conflicts = append(conflicts, validateSignatureCollision(ix, affected, plan)...)

	var edits []TextEdit
	for _, sym := range affected {
		e, hErrs := rewriteHeader(ix, sym, plan)
		conflicts = append(conflicts, hErrs...)
		edits = append(edits, e...)
	}

	csEdits, csConflicts := rewriteCallSites(ix, target, affected, plan)
	conflicts = append(conflicts, csConflicts...)
	edits = append(edits, csEdits...)

	edits = append(edits, rewriteAnnotationValueShorthand(ix, target, plan)...)

	if len(conflicts) > 0 {
		sortConflicts(conflicts)
		return nil, &ConflictError{Conflicts: conflicts}
	}

	we, overlapConflicts := normalize(edits)
	if len(overlapConflicts) > 0 {
		return nil, &ConflictError{Conflicts: overlapConflicts}
	}
	return we, nil
}

func sortConflicts(cs []Conflict) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].File != cs[j].File {
			return cs[i].File < cs[j].File
		}
		if cs[i].Span.Start.Offset != cs[j].Span.Start.Offset {
			return cs[i].Span.Start.Offset < cs[j].Span.Start.Offset
		}
		return cs[i].Kind < cs[j].Kind
	})
}

// computeAffected walks the hierarchy per spec §4.5 step 2, returning the
// target plus every related declaration hierarchy_propagation selects.
// Overridden/Overrides already implement the interface-walking rules spec
// §4.5 describes (see nova/index.FindOverridden/FindOverrides).
func computeAffected(ix *index.Index, target *index.Symbol, prop HierarchyPropagation) []*index.Symbol {
	affected := []*index.Symbol{target}
	switch prop {
	case PropagateOverridden:
		affected = append(affected, ix.FindOverridden(target.Container, target)...)
	case PropagateOverrides:
		affected = append(affected, ix.FindOverrides(target.Container, target)...)
	case PropagateBoth:
		affected = append(affected, ix.FindOverridden(target.Container, target)...)
		affected = append(affected, ix.FindOverrides(target.Container, target)...)
	}
	return dedupeSymbols(affected)
}

func dedupeSymbols(syms []*index.Symbol) []*index.Symbol {
	seen := map[index.SymbolID]bool{}
	var out []*index.Symbol
	for _, s := range syms {
		if s == nil || seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out
}

// keptOldIndexes returns the set of original parameter indexes plan.Parameters
// still references via ExistingParam — everything else is a removed
// parameter, spec §4.5 step 3.
func keptOldIndexes(plan Plan) map[int]bool {
	kept := map[int]bool{}
	for _, op := range plan.Parameters {
		if e, ok := op.(ExistingParam); ok {
			kept[e.OldIndex] = true
		}
	}
	return kept
}
