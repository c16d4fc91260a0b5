package dap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nova-ide/nova/nova/jdwp"
)

type threadInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (s *Session) handleThreads(req *Message) (any, error) {
	if s.jdwpConn == nil {
		return nil, errors.New("not attached")
	}
	ids, err := s.jdwpConn.AllThreads()
	if err != nil {
		return nil, err
	}
	out := make([]threadInfo, 0, len(ids))
	for _, id := range ids {
		name, err := s.jdwpConn.ThreadName(id)
		if err != nil {
			name = "<unknown>"
		}
		out = append(out, threadInfo{ID: int(id), Name: name})
	}
	return struct {
		Threads []threadInfo `json:"threads"`
	}{out}, nil
}

type stackTraceArgs struct {
	ThreadID int `json:"threadId"`
}

type stackFrameDTO struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Source source `json:"source,omitempty"`
}

// handleStackTrace allocates a frame handle per live JDWP frame (spec
// §4.7: "allocated on demand during stackTrace and scopes handling of a
// given stop. Stable across repeated queries within the same stop.").
func (s *Session) handleStackTrace(req *Message) (any, error) {
	var args stackTraceArgs
	if err := decodeArgs(req, &args); err != nil {
		return nil, err
	}
	if s.jdwpConn == nil {
		return nil, errors.New("not attached")
	}
	thread := jdwp.ThreadID(args.ThreadID)
	frames, err := s.jdwpConn.Frames(thread)
	if err != nil {
		return nil, err
	}
	out := make([]stackFrameDTO, 0, len(frames))
	for _, f := range frames {
		ctx := FrameContext{ThreadID: thread, FrameID: f.ID, TypeID: f.Type, MethodID: f.Method, CodeIndex: f.CodeIndex}
		handle := s.handles.AllocFrame(ctx)
		name := s.frameDisplayName(f)
		line := s.lineForFrame(f)
		srcFile, _ := s.jdwpConn.SourceFile(f.Type)
		out = append(out, stackFrameDTO{ID: handle, Name: name, Line: line, Column: 1, Source: source{Name: srcFile, Path: srcFile}})
	}
	return struct {
		StackFrames []stackFrameDTO `json:"stackFrames"`
		TotalFrames int             `json:"totalFrames"`
	}{out, len(out)}, nil
}

func (s *Session) frameDisplayName(f jdwp.Frame) string {
	methods, err := s.jdwpConn.Methods(f.Type)
	if err != nil {
		return "<unknown>"
	}
	for _, m := range methods {
		if m.ID == f.Method {
			sig, _ := s.jdwpConn.Signature(f.Type)
			return strings.TrimSuffix(strings.TrimPrefix(sig, "L"), ";") + "." + m.Name
		}
	}
	return "<unknown>"
}

func (s *Session) lineForFrame(f jdwp.Frame) int {
	methods, err := s.jdwpConn.Methods(f.Type)
	if err != nil {
		return 0
	}
	for _, m := range methods {
		if m.ID != f.Method {
			continue
		}
		lt, err := s.jdwpConn.LineTable(f.Type, m.ID)
		if err != nil || lt == nil {
			return 0
		}
		best := 0
		for _, e := range lt.Entries {
			if e.CodeIndex <= f.CodeIndex {
				best = e.Line
			}
		}
		return best
	}
	return 0
}

type scopesArgs struct {
	FrameID int `json:"frameId"`
}

type scopeDTO struct {
	Name               string `json:"name"`
	VariablesReference int    `json:"variablesReference"`
	Expensive          bool   `json:"expensive"`
}

// handleScopes returns Local and Static for the frame plus the always-
// present pinned scope (spec §4.7: "a synthetic scope visible on every
// frame's scope list alongside Local/Static").
func (s *Session) handleScopes(req *Message) (any, error) {
	var args scopesArgs
	if err := decodeArgs(req, &args); err != nil {
		return nil, err
	}
	_, ok := s.handles.LookupFrame(args.FrameID)
	if !ok {
		return nil, errors.New("stale frame handle")
	}
	localRef := s.handles.AllocScope(args.FrameID, ScopeLocal)
	staticRef := s.handles.AllocScope(args.FrameID, ScopeStatic)
	return struct {
		Scopes []scopeDTO `json:"scopes"`
	}{[]scopeDTO{
		{Name: "Local", VariablesReference: localRef},
		{Name: "Static", VariablesReference: staticRef},
		{Name: "Pinned", VariablesReference: PinnedScopeRef},
	}}, nil
}

type variablesArgs struct {
	VariablesReference int `json:"variablesReference"`
}

type variableDTO struct {
	Name               string `json:"name"`
	Value              string `json:"value"`
	Type               string `json:"type,omitempty"`
	VariablesReference int    `json:"variablesReference"`
	EvaluateName       string `json:"evaluateName,omitempty"`
}

func (s *Session) handleVariables(req *Message) (any, error) {
	var args variablesArgs
	if err := decodeArgs(req, &args); err != nil {
		return nil, err
	}
	if s.jdwpConn == nil {
		return nil, errors.New("not attached")
	}

	if args.VariablesReference >= ObjectHandleBase {
		return s.variablesForObject(args.VariablesReference)
	}

	kind, frameHandle, ok := s.handles.LookupScope(args.VariablesReference)
	if !ok {
		// Stale scope handle: empty list, not an error (spec §4.7).
		return struct {
			Variables []variableDTO `json:"variables"`
		}{nil}, nil
	}

	switch kind {
	case ScopePinned:
		return s.variablesForPinnedScope(), nil
	case ScopeLocal:
		return s.variablesForLocalScope(frameHandle)
	case ScopeStatic:
		return s.variablesForStaticScope(frameHandle)
	}
	return struct {
		Variables []variableDTO `json:"variables"`
	}{nil}, nil
}

func (s *Session) variablesForLocalScope(frameHandle int) (any, error) {
	ctx, ok := s.handles.LookupFrame(frameHandle)
	if !ok {
		return struct {
			Variables []variableDTO `json:"variables"`
		}{nil}, nil
	}
	vt, err := s.jdwpConn.VariableTable(ctx.TypeID, ctx.MethodID)
	if err != nil {
		return nil, err
	}
	var inScope []jdwp.LocalVarSlot
	for _, slot := range vt.Slots {
		if slot.InScope(ctx.CodeIndex) {
			inScope = append(inScope, slot)
		}
	}
	values, err := s.jdwpConn.GetStackValues(ctx.ThreadID, ctx.FrameID, inScope)
	if err != nil {
		return nil, err
	}
	out := make([]variableDTO, 0, len(inScope))
	for i, slot := range inScope {
		if i >= len(values) {
			break
		}
		out = append(out, s.renderVariable(slot.Name, values[i], slot.Name))
	}
	return struct {
		Variables []variableDTO `json:"variables"`
	}{out}, nil
}

func (s *Session) variablesForStaticScope(frameHandle int) (any, error) {
	ctx, ok := s.handles.LookupFrame(frameHandle)
	if !ok {
		return struct {
			Variables []variableDTO `json:"variables"`
		}{nil}, nil
	}
	fields, err := s.jdwpConn.Fields(ctx.TypeID)
	if err != nil {
		return nil, err
	}
	var statics []jdwp.FieldInfo
	for _, f := range fields {
		if f.IsStatic() {
			statics = append(statics, f)
		}
	}
	values, err := s.jdwpConn.GetStaticFields(ctx.TypeID, statics)
	if err != nil {
		return nil, err
	}
	out := make([]variableDTO, 0, len(statics))
	for i, f := range statics {
		if i >= len(values) {
			break
		}
		out = append(out, s.renderVariable(f.Name, values[i], f.Name))
	}
	return struct {
		Variables []variableDTO `json:"variables"`
	}{out}, nil
}

// variablesForPinnedScope lists every pinned object (spec §4.7: "whose
// children are all currently-pinned objects").
func (s *Session) variablesForPinnedScope() any {
	handles := s.handles.PinnedHandles()
	out := make([]variableDTO, 0, len(handles))
	for _, h := range handles {
		obj, ok := s.handles.ObjectForHandle(h)
		if !ok {
			continue
		}
		preview, _ := s.jdwpConn.PreviewObject(obj)
		text := "<object>"
		if preview != nil {
			text = preview.Text
		}
		out = append(out, variableDTO{
			Name: text, Value: text, VariablesReference: h,
			EvaluateName: pinnedEvaluateName(h, ""),
		})
	}
	return struct {
		Variables []variableDTO `json:"variables"`
	}{out}
}

func (s *Session) variablesForObject(ref int) (any, error) {
	obj, ok := s.handles.ObjectForHandle(ref)
	if !ok {
		return nil, errors.Errorf("unknown object handle %d", ref)
	}
	children, err := s.jdwpConn.ObjectChildren(obj)
	if err != nil {
		return nil, err
	}
	out := make([]variableDTO, 0, len(children))
	for _, c := range children {
		out = append(out, s.renderVariable(c.Name, c.Value, c.Name))
	}
	return struct {
		Variables []variableDTO `json:"variables"`
	}{out}, nil
}

// renderVariable builds a DAP variable DTO, minting a fresh object handle
// (spec §3: stable for the JVM object's lifetime) when the value is itself
// an object, so it can be further expanded.
func (s *Session) renderVariable(name string, v jdwp.Value, evalSuffix string) variableDTO {
	dto := variableDTO{Name: name}
	if v.IsObject() {
		if v.Obj == 0 {
			dto.Value = "null"
			return dto
		}
		ref := s.handles.HandleForObject(v.Obj)
		preview, _ := s.jdwpConn.PreviewObject(v.Obj)
		if preview != nil {
			dto.Value = preview.Text
			dto.Type = preview.Kind
		}
		dto.VariablesReference = ref
		return dto
	}
	dto.Value = renderPrimitiveValue(v)
	return dto
}

func renderPrimitiveValue(v jdwp.Value) string {
	switch v.Tag {
	case jdwp.TagFloat, jdwp.TagDouble:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case jdwp.TagBoolean:
		return strconv.FormatBool(v.Prim != 0)
	default:
		return strconv.FormatInt(v.Prim, 10)
	}
}

func pinnedEvaluateName(handle int, field string) string {
	if field == "" {
		return strings.TrimSuffix(pinnedPrefix(handle), ".")
	}
	return pinnedPrefix(handle) + field
}

func pinnedPrefix(handle int) string {
	return "__novaPinned[" + strconv.Itoa(handle) + "]."
}

type setVariableArgs struct {
	VariablesReference int    `json:"variablesReference"`
	Name                string `json:"name"`
	Value               string `json:"value"`
}

type setVariableResult struct {
	Value               string `json:"value"`
	Type                string `json:"type,omitempty"`
	VariablesReference int    `json:"variablesReference,omitempty"`
}

// handleSetVariable routes the write to StackFrame/ObjectReference/
// ArrayReference/ClassType.SetValues depending on which handle range the
// reference falls in (spec §4.7).
func (s *Session) handleSetVariable(req *Message) (any, error) {
	var args setVariableArgs
	if err := decodeArgs(req, &args); err != nil {
		return nil, err
	}
	if s.jdwpConn == nil {
		return nil, errors.New("not attached")
	}

	if args.VariablesReference >= ObjectHandleBase {
		return s.setVariableOnObject(args)
	}

	kind, frameHandle, ok := s.handles.LookupScope(args.VariablesReference)
	if !ok {
		return nil, errors.New("stale variables reference")
	}
	switch kind {
	case ScopeLocal:
		return s.setVariableLocal(frameHandle, args)
	case ScopeStatic:
		return s.setVariableStatic(frameHandle, args)
	default:
		return nil, errors.New("this scope's variables cannot be set")
	}
}

func (s *Session) setVariableLocal(frameHandle int, args setVariableArgs) (any, error) {
	ctx, ok := s.handles.LookupFrame(frameHandle)
	if !ok {
		return nil, errors.New("stale frame handle")
	}
	vt, err := s.jdwpConn.VariableTable(ctx.TypeID, ctx.MethodID)
	if err != nil {
		return nil, err
	}
	slot, ok := vt.Resolve(args.Name, ctx.CodeIndex)
	if !ok {
		return nil, errors.Errorf("no local variable named %q in scope", args.Name)
	}
	v, err := s.jdwpConn.ParseLiteral(slot.Signature, args.Value)
	if err != nil {
		return nil, err
	}
	if err := s.jdwpConn.SetStackValue(ctx.ThreadID, ctx.FrameID, slot.Slot, v); err != nil {
		return nil, err
	}
	return setVariableResult{Value: args.Value}, nil
}

func (s *Session) setVariableStatic(frameHandle int, args setVariableArgs) (any, error) {
	ctx, ok := s.handles.LookupFrame(frameHandle)
	if !ok {
		return nil, errors.New("stale frame handle")
	}
	fields, err := s.jdwpConn.Fields(ctx.TypeID)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if f.Name != args.Name || !f.IsStatic() {
			continue
		}
		v, err := s.jdwpConn.ParseLiteral(f.Sig, args.Value)
		if err != nil {
			return nil, err
		}
		if err := s.jdwpConn.SetStaticField(ctx.TypeID, f.ID, v); err != nil {
			return nil, err
		}
		return setVariableResult{Value: args.Value}, nil
	}
	return nil, errors.Errorf("no static field named %q", args.Name)
}

func (s *Session) setVariableOnObject(args setVariableArgs) (any, error) {
	obj, ok := s.handles.ObjectForHandle(args.VariablesReference)
	if !ok {
		return nil, errors.Errorf("unknown object handle %d", args.VariablesReference)
	}
	_, rt, err := s.jdwpConn.ObjectReferenceType(obj)
	if err != nil {
		return nil, err
	}
	sig, err := s.jdwpConn.Signature(rt)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(sig, "[") && strings.HasPrefix(args.Name, "[") {
		idxStr := strings.TrimSuffix(strings.TrimPrefix(args.Name, "["), "]")
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			return nil, errors.Errorf("invalid array index %q", args.Name)
		}
		v, err := s.jdwpConn.ParseLiteral(sig[1:], args.Value)
		if err != nil {
			return nil, err
		}
		if err := s.jdwpConn.ArraySetValues(obj, idx, []jdwp.Value{v}); err != nil {
			return nil, err
		}
		return setVariableResult{Value: args.Value}, nil
	}
	fields, err := s.jdwpConn.Fields(rt)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if f.Name != args.Name || f.IsStatic() {
			continue
		}
		v, err := s.jdwpConn.ParseLiteral(f.Sig, args.Value)
		if err != nil {
			return nil, err
		}
		if err := s.jdwpConn.SetObjectField(obj, f.ID, v); err != nil {
			return nil, err
		}
		return setVariableResult{Value: args.Value}, nil
	}
	return nil, errors.Errorf("no field named %q", args.Name)
}

type threadArgs struct {
	ThreadID int `json:"threadId"`
}

// handleContinue resumes exactly one thread (spec §4.7: allThreadsContinued
// is always false — the session only ever resumes per-thread).
func (s *Session) handleContinue(req *Message) (any, error) {
	var args threadArgs
	if err := decodeArgs(req, &args); err != nil {
		return nil, err
	}
	if s.jdwpConn == nil {
		return nil, errors.New("not attached")
	}
	s.clearStepBookkeeping(jdwp.ThreadID(args.ThreadID))
	if err := s.jdwpConn.ResumeThread(jdwp.ThreadID(args.ThreadID)); err != nil {
		return nil, err
	}
	s.handles.InvalidateStop()
	return struct {
		AllThreadsContinued bool `json:"allThreadsContinued"`
	}{false}, nil
}

func (s *Session) clearStepBookkeeping(t jdwp.ThreadID) {
	s.mu.Lock()
	delete(s.stepDepth, t)
	s.mu.Unlock()
}

// stepAndResume installs a Step request at the given JDWP depth and, only
// when the thread has opted in through nova/enableMethodReturnValues, a
// method-exit-with-return-value request on the same thread so the
// resulting stop can report the stepped-over call's return value; then it
// resumes the thread.
func (s *Session) stepAndResume(threadID int, depth int) error {
	t := jdwp.ThreadID(threadID)
	if _, err := s.jdwpConn.SetStep(t, depth); err != nil {
		return err
	}
	s.mu.Lock()
	wantReturnValue := s.methodReturnValuesEnabled[t]
	s.stepDepth[t] = depth
	s.mu.Unlock()
	if wantReturnValue {
		if _, err := s.jdwpConn.SetMethodExitWithReturnValue(t); err != nil {
			return err
		}
	}
	if err := s.jdwpConn.ResumeThread(t); err != nil {
		return err
	}
	s.handles.InvalidateStop()
	return nil
}

func (s *Session) handleNext(req *Message) (any, error) {
	var args threadArgs
	if err := decodeArgs(req, &args); err != nil {
		return nil, err
	}
	if s.jdwpConn == nil {
		return nil, errors.New("not attached")
	}
	if err := s.stepAndResume(args.ThreadID, 1); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

func (s *Session) handleStepIn(req *Message) (any, error) {
	var args threadArgs
	if err := decodeArgs(req, &args); err != nil {
		return nil, err
	}
	if s.jdwpConn == nil {
		return nil, errors.New("not attached")
	}
	if err := s.stepAndResume(args.ThreadID, 0); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

func (s *Session) handleStepOut(req *Message) (any, error) {
	var args threadArgs
	if err := decodeArgs(req, &args); err != nil {
		return nil, err
	}
	if s.jdwpConn == nil {
		return nil, errors.New("not attached")
	}
	if err := s.stepAndResume(args.ThreadID, 2); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

// handlePause suspends exactly one thread and emits a synthetic stopped
// event with reason "pause" (JDWP's Suspend doesn't raise an event of its
// own, unlike breakpoints and steps).
func (s *Session) handlePause(req *Message) (any, error) {
	var args threadArgs
	if err := decodeArgs(req, &args); err != nil {
		return nil, err
	}
	if s.jdwpConn == nil {
		return nil, errors.New("not attached")
	}
	t := jdwp.ThreadID(args.ThreadID)
	if err := s.jdwpConn.SuspendThread(t); err != nil {
		return nil, err
	}
	s.handles.InvalidateStop()
	s.emitEvent("stopped", StoppedBody{Reason: "pause", ThreadID: args.ThreadID, AllThreadsStopped: false})
	return struct{}{}, nil
}

type stepInTargetsArgs struct {
	FrameID int `json:"frameId"`
}

type stepInTarget struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// handleStepInTargets lists the call boundaries on the frame's current
// source line, in line-table order (spec §4.7/§8's stepInTargets ordering
// scenario), approximating call sites as the line table's own sub-entries
// that share the frame's current line.
func (s *Session) handleStepInTargets(req *Message) (any, error) {
	var args stepInTargetsArgs
	if err := decodeArgs(req, &args); err != nil {
		return nil, err
	}
	ctx, ok := s.handles.LookupFrame(args.FrameID)
	if !ok {
		return nil, errors.New("stale frame handle")
	}
	lt, err := s.jdwpConn.LineTable(ctx.TypeID, ctx.MethodID)
	if err != nil {
		return nil, err
	}
	_, currentLine, _ := lt.ClosestCodeIndex(0)
	for _, e := range lt.Entries {
		if e.CodeIndex <= ctx.CodeIndex {
			currentLine = e.Line
		}
	}
	var targets []stepInTarget
	for i, e := range lt.Entries {
		if e.Line == currentLine {
			targets = append(targets, stepInTarget{ID: i, Label: fmt.Sprintf("line %d, call %d", e.Line, len(targets)+1)})
		}
	}
	if len(targets) == 0 {
		targets = []stepInTarget{{ID: 0, Label: fmt.Sprintf("line %d", currentLine)}}
	}
	return struct {
		Targets []stepInTarget `json:"targets"`
	}{targets}, nil
}

type evaluateArgs struct {
	Expression string `json:"expression"`
	FrameID    int    `json:"frameId"`
}

type evaluateResult struct {
	Result              string `json:"result"`
	Type                string `json:"type,omitempty"`
	VariablesReference int    `json:"variablesReference,omitempty"`
}

// handleEvaluate supports the restricted single-identifier grammar of
// jdwp.Evaluate (spec §4.6/§4.7).
func (s *Session) handleEvaluate(req *Message) (any, error) {
	var args evaluateArgs
	if err := decodeArgs(req, &args); err != nil {
		return nil, err
	}
	if s.jdwpConn == nil {
		return nil, errors.New("not attached")
	}
	ctx, ok := s.handles.LookupFrame(args.FrameID)
	if !ok {
		return nil, errors.New("stale frame handle")
	}
	frame := jdwp.Frame{ID: ctx.FrameID, Type: ctx.TypeID, Method: ctx.MethodID, CodeIndex: ctx.CodeIndex}
	res, err := s.jdwpConn.Evaluate(args.Expression, ctx.ThreadID, frame)
	if err != nil {
		return nil, err
	}
	out := evaluateResult{Type: res.RuntimeType}
	if res.Value.IsObject() {
		if res.Value.Obj == 0 {
			out.Result = "null"
			return out, nil
		}
		ref := s.handles.HandleForObject(res.Value.Obj)
		preview, _ := s.jdwpConn.PreviewObject(res.Value.Obj)
		if preview != nil {
			out.Result = preview.Text
		}
		out.VariablesReference = ref
		return out, nil
	}
	out.Result = renderPrimitiveValue(res.Value)
	return out, nil
}

type redefineClassesArgs struct {
	Classes []struct {
		ClassName string `json:"className"`
		Bytecode  string `json:"bytecode"` // base64
	} `json:"classes"`
}

type redefineClassResult struct {
	ClassName    string `json:"className"`
	Ok           bool   `json:"ok"`
	SchemaChange bool   `json:"schemaChange,omitempty"`
	Error        string `json:"error,omitempty"`
}

// handleRedefineClasses applies new bytecode to already-loaded classes,
// surfacing JDWP error 62 as a distinguished schema-change failure rather
// than a generic error (spec §4.7/§8 scenario 4).
func (s *Session) handleRedefineClasses(req *Message) (any, error) {
	var args redefineClassesArgs
	if err := decodeArgs(req, &args); err != nil {
		return nil, err
	}
	if s.jdwpConn == nil {
		return nil, errors.New("not attached")
	}
	results := make([]redefineClassResult, 0, len(args.Classes))
	for _, cl := range args.Classes {
		res := s.redefineOne(cl.ClassName, cl.Bytecode)
		results = append(results, res)
	}
	return struct {
		Results []redefineClassResult `json:"results"`
	}{results}, nil
}
