package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nova-ide/nova/nova/index"
	"github.com/nova-ide/nova/nova/refactor"
	"github.com/nova-ide/nova/nova/syntax"
)

func newRefactorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refactor",
		Short: "Semantic refactorings over an indexed Java source tree",
	}
	cmd.AddCommand(newRenameSignatureCmd())
	return cmd
}

func newRenameSignatureCmd() *cobra.Command {
	var (
		class       string
		method      string
		newName     string
		newReturn   string
		propagate   string
		params      []string
		dryRun      bool
		paramTypes  []string
	)

	cmd := &cobra.Command{
		Use:   "rename-signature <root>",
		Short: "Rewrite a method's name, parameters, or return type across its override hierarchy and call sites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := buildIndex(args[0])
			if err != nil {
				return err
			}

			target := findTargetMethod(ix, class, method, paramTypes)
			if target == nil {
				return fmt.Errorf("method %s.%s not found under %s", class, method, args[0])
			}

			plan := refactor.Plan{TargetMethodID: target.ID}
			if newName != "" {
				plan.NewName = &newName
			}
			if newReturn != "" {
				plan.NewReturnType = &newReturn
			}
			prop, err := parsePropagation(propagate)
			if err != nil {
				return err
			}
			plan.HierarchyPropagation = prop

			if len(params) > 0 {
				ops, err := parseParamOps(params)
				if err != nil {
					return err
				}
				plan.Parameters = ops
			}

			edit, err := refactor.ChangeSignature(ix, plan)
			if err != nil {
				if ce, ok := err.(*refactor.ConflictError); ok {
					enc := json.NewEncoder(cmd.ErrOrStderr())
					enc.SetIndent("", "  ")
					enc.Encode(ce.Conflicts)
					return fmt.Errorf("%d conflict(s), no edits applied", len(ce.Conflicts))
				}
				return err
			}

			if dryRun {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(edit.Edits)
			}
			return applyEdits(ix, edit)
		},
	}
	cmd.Flags().StringVar(&class, "class", "", "fully-qualified class or interface declaring the target method (required)")
	cmd.Flags().StringVar(&method, "method", "", "target method name (required)")
	cmd.Flags().StringSliceVar(&paramTypes, "erased-param-types", nil, "erased parameter types disambiguating an overload, in order")
	cmd.Flags().StringVar(&newName, "new-name", "", "rename the method to this identifier")
	cmd.Flags().StringVar(&newReturn, "new-return-type", "", "change the method's return type")
	cmd.Flags().StringVar(&propagate, "propagate", "none", "hierarchy propagation: none, overrides, overridden, both")
	cmd.Flags().StringArrayVar(&params, "param", nil, "parameter operation, in final order: existing:oldIndex[:newName[:newType]] or add:name:type:defaultExpr")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the computed edits as JSON instead of applying them")
	cmd.MarkFlagRequired("class")
	cmd.MarkFlagRequired("method")
	return cmd
}

func parsePropagation(s string) (refactor.HierarchyPropagation, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return refactor.PropagateNone, nil
	case "overrides":
		return refactor.PropagateOverrides, nil
	case "overridden":
		return refactor.PropagateOverridden, nil
	case "both":
		return refactor.PropagateBoth, nil
	default:
		return 0, fmt.Errorf("unknown --propagate value %q (want none, overrides, overridden, both)", s)
	}
}

func parseParamOps(raw []string) ([]refactor.ParamOp, error) {
	ops := make([]refactor.ParamOp, 0, len(raw))
	for _, spec := range raw {
		parts := strings.Split(spec, ":")
		switch parts[0] {
		case "existing":
			if len(parts) < 2 {
				return nil, fmt.Errorf("--param existing:... needs an old index: %q", spec)
			}
			var idx int
			if _, err := fmt.Sscanf(parts[1], "%d", &idx); err != nil {
				return nil, fmt.Errorf("--param %q: bad old index: %w", spec, err)
			}
			op := refactor.ExistingParam{OldIndex: idx}
			if len(parts) > 2 && parts[2] != "" {
				name := parts[2]
				op.NewName = &name
			}
			if len(parts) > 3 && parts[3] != "" {
				ty := parts[3]
				op.NewType = &ty
			}
			ops = append(ops, op)
		case "add":
			if len(parts) < 4 {
				return nil, fmt.Errorf("--param add:... needs name:type:defaultExpr: %q", spec)
			}
			def := strings.Join(parts[3:], ":")
			ops = append(ops, refactor.AddParam{Name: parts[1], Type: parts[2], DefaultValue: &def})
		default:
			return nil, fmt.Errorf("--param %q: must start with existing: or add:", spec)
		}
	}
	return ops, nil
}

func findTargetMethod(ix *index.Index, class, method string, erasedParamTypes []string) *index.Symbol {
	if len(erasedParamTypes) > 0 {
		if sym, ok := ix.FindMethod(class, method, erasedParamTypes); ok {
			return sym
		}
		return nil
	}
	candidates := ix.FindMethodsByName(class, method)
	if len(candidates) == 0 {
		return nil
	}
	return candidates[0]
}

// buildIndex walks root for .java files, parses each, and indexes it —
// the same parse-then-Build pipeline nova/index's own tests use, just
// driven over a directory tree instead of inline fixtures.
func buildIndex(root string) (*index.Index, error) {
	ix := index.New()
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".java") {
			return nil
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		tree, _ := syntax.ParseCompilationUnit(strings.NewReader(string(src)), syntax.WithFile(path))
		ix.Build(path, string(src), tree)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ix, nil
}

// applyEdits writes a successful WorkspaceEdit back to disk, grouping edits
// by file and applying them back-to-front so earlier offsets stay valid.
func applyEdits(ix *index.Index, edit *refactor.WorkspaceEdit) error {
	byFile := map[string][]refactor.TextEdit{}
	for _, e := range edit.Edits {
		byFile[e.File] = append(byFile[e.File], e)
	}
	for file, edits := range byFile {
		text, ok := ix.FileText(file)
		if !ok {
			return fmt.Errorf("no cached text for %s", file)
		}
		out := []byte(text)
		for i := len(edits) - 1; i >= 0; i-- {
			e := edits[i]
			out = append(out[:e.Span.Start.Offset], append([]byte(e.NewText), out[e.Span.End.Offset:]...)...)
		}
		if err := os.WriteFile(file, out, 0o644); err != nil {
			return err
		}
	}
	return nil
}
