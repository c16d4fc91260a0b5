package dap

import (
	"context"
	"encoding/base64"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/nova-ide/nova/nova/jdwp"
)

// redefineOne resolves className to its loaded ReferenceTypeID and installs
// the decoded bytecode via RedefineClasses, reporting a schema-change
// failure distinctly from any other error (spec §4.7/§8 scenario 4).
func (s *Session) redefineOne(className, bytecodeB64 string) redefineClassResult {
	sig := "L" + strings.ReplaceAll(className, ".", "/") + ";"
	types, err := s.jdwpConn.ClassesBySignature(sig)
	if err != nil || len(types) == 0 {
		return redefineClassResult{ClassName: className, Error: "class not loaded"}
	}
	bytecode, err := base64.StdEncoding.DecodeString(bytecodeB64)
	if err != nil {
		return redefineClassResult{ClassName: className, Error: "invalid bytecode encoding"}
	}
	if err := s.jdwpConn.RedefineClasses(types[0].ID, bytecode); err != nil {
		if jdwp.IsSchemaChange(err) {
			return redefineClassResult{ClassName: className, SchemaChange: true, Error: err.Error()}
		}
		return redefineClassResult{ClassName: className, Error: err.Error()}
	}
	return redefineClassResult{ClassName: className, Ok: true}
}

type hotSwapClassArg struct {
	ClassName      string `json:"className"`
	BytecodeBase64 string `json:"bytecodeBase64"`
	File           string `json:"file,omitempty"`
}

type hotSwapArgs struct {
	Classes      []hotSwapClassArg `json:"classes"`
	ChangedFiles []string          `json:"changedFiles"`
}

// hotSwapResult is one class's redefine outcome. Status is one of "ok",
// "error", or "schema_change" (spec §4.7/§8 scenario 4: "results[0].status
// == 'schema_change'"); File groups results by the source they came from,
// set from the caller-supplied className/file pair or from the changed
// file javac compiled the class out of.
type hotSwapResult struct {
	File      string `json:"file,omitempty"`
	ClassName string `json:"className"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

func toHotSwapResult(file string, r redefineClassResult) hotSwapResult {
	status := "error"
	switch {
	case r.SchemaChange:
		status = "schema_change"
	case r.Ok:
		status = "ok"
	}
	return hotSwapResult{File: file, ClassName: r.ClassName, Status: status, Message: r.Error}
}

// handleHotSwap installs new bytecode for one or more already-loaded
// classes (spec §4.7). It accepts either pre-compiled bytecode
// (`classes:[{className, bytecodeBase64, file?}]`, no recompilation) or a
// list of changed source files (`changedFiles:[path]`), in which case an
// external collaborator -- the JDK's own javac -- compiles them into a
// scratch directory scoped to this process first. Results are grouped per
// file, and a JVM schema-change reply (JDWP error 62) is surfaced as its
// own status rather than folded into a generic error (spec §8 scenario 4).
func (s *Session) handleHotSwap(req *Message) (any, error) {
	var args hotSwapArgs
	if err := decodeArgs(req, &args); err != nil {
		return nil, err
	}
	if s.jdwpConn == nil {
		return nil, errors.New("not attached")
	}

	var results []hotSwapResult
	for _, cl := range args.Classes {
		results = append(results, toHotSwapResult(cl.File, s.redefineOne(cl.ClassName, cl.BytecodeBase64)))
	}
	for _, file := range args.ChangedFiles {
		fileResults, err := s.hotSwapChangedFile(file)
		if err != nil {
			results = append(results, hotSwapResult{File: file, Status: "error", Message: err.Error()})
			continue
		}
		results = append(results, fileResults...)
	}

	return struct {
		Results []hotSwapResult `json:"results"`
	}{results}, nil
}

// hotSwapChangedFile compiles file with javac into a scratch directory
// scoped to this process (registered in s.hotSwapTempDirs for cleanup on
// Shutdown, or left behind when NOVA_DAP_KEEP_HOT_SWAP_TEMP is set), then
// redefines every class the compile produced.
func (s *Session) hotSwapChangedFile(file string) ([]hotSwapResult, error) {
	dir, err := os.MkdirTemp("", fmt.Sprintf("nova-hotswap-%d-", os.Getpid()))
	if err != nil {
		return nil, errors.Wrap(err, "create scratch dir")
	}
	s.mu.Lock()
	s.hotSwapTempDirs = append(s.hotSwapTempDirs, dir)
	s.mu.Unlock()

	cmd := exec.CommandContext(context.Background(), "javac", "-d", dir, file)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, errors.Errorf("javac failed: %s", out)
	}

	classNames, err := compiledClassNames(dir)
	if err != nil {
		return nil, err
	}
	if len(classNames) == 0 {
		return nil, errors.New("javac produced no class files")
	}

	results := make([]hotSwapResult, 0, len(classNames))
	for _, className := range classNames {
		classFile := filepath.Join(dir, strings.ReplaceAll(className, ".", string(filepath.Separator))+".class")
		bytecode, err := os.ReadFile(classFile)
		if err != nil {
			results = append(results, hotSwapResult{File: file, ClassName: className, Status: "error", Message: err.Error()})
			continue
		}
		res := s.redefineOne(className, base64.StdEncoding.EncodeToString(bytecode))
		results = append(results, toHotSwapResult(file, res))
	}
	return results, nil
}

// compiledClassNames walks a javac output directory and returns every
// produced class's fully qualified, '$'-preserving binary name.
func compiledClassNames(dir string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".class") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = strings.TrimSuffix(rel, ".class")
		names = append(names, strings.ReplaceAll(rel, string(filepath.Separator), "."))
		return nil
	})
	return names, err
}

type pinObjectArgs struct {
	VariablesReference int `json:"variablesReference"`
}

type pinObjectResult struct {
	Pinned bool `json:"pinned"`
}

// handlePinObject calls DisableCollection on the underlying object and
// records it in the pinned scope (spec §4.6/§4.7/§5: "always paired with
// an enable on unpin or on session shutdown").
func (s *Session) handlePinObject(req *Message) (any, error) {
	var args pinObjectArgs
	if err := decodeArgs(req, &args); err != nil {
		return nil, err
	}
	if s.jdwpConn == nil {
		return nil, errors.New("not attached")
	}
	obj, ok := s.handles.ObjectForHandle(args.VariablesReference)
	if !ok {
		return nil, errors.Errorf("unknown object handle %d", args.VariablesReference)
	}
	if s.handles.IsPinned(args.VariablesReference) {
		return pinObjectResult{Pinned: true}, nil
	}
	if err := s.jdwpConn.DisableCollection(obj); err != nil {
		return nil, err
	}
	s.handles.Pin(args.VariablesReference)
	return pinObjectResult{Pinned: true}, nil
}

type enableMethodReturnValuesArgs struct {
	ThreadID int  `json:"threadId"`
	Enabled  bool `json:"enabled"`
}

// handleEnableMethodReturnValues toggles whether this session's
// next/stepIn/stepOut pair a method-exit-with-return-value request
// alongside their Step request for the given thread (spec §4.6/§4.7:
// "captured return/expression values are reported as output before the
// stopped event").
func (s *Session) handleEnableMethodReturnValues(req *Message) (any, error) {
	var args enableMethodReturnValuesArgs
	if err := decodeArgs(req, &args); err != nil {
		return nil, err
	}
	t := jdwp.ThreadID(args.ThreadID)
	s.mu.Lock()
	if args.Enabled {
		s.methodReturnValuesEnabled[t] = true
	} else {
		delete(s.methodReturnValuesEnabled, t)
	}
	s.mu.Unlock()
	return struct {
		Enabled bool `json:"enabled"`
	}{args.Enabled}, nil
}
