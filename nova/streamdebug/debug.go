package streamdebug

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/nova-ide/nova/nova/jdwp"
	"github.com/nova-ide/nova/nova/logging"
)

var log = logging.For("streamdebug")

// Config gates which operations DebugStream is willing to perform, per spec
// §4.8: "Terminal execution is gated behind allow_terminal_ops;
// side-effecting terminals ... require allow_side_effects."
type Config struct {
	AllowTerminalOps bool
	AllowSideEffects bool
	SampleLimit      int // default 20; how many elements each stage samples
	TimeBudget       time.Duration
}

// DefaultConfig is a conservative default: no terminal execution, small
// samples, a generous but bounded time budget.
func DefaultConfig() Config {
	return Config{SampleLimit: 20, TimeBudget: 10 * time.Second}
}

func budgetOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

// StageResult is one sampled point in the pipeline: the source itself
// (Op == ""), one intermediate stage, or the terminal.
type StageResult struct {
	Op      string
	Raw     string
	Preview string // rendered via jdwp.Client.RenderValue, e.g. `[1, 2, 3]`'s element previews joined, or "void"
	Err     error
}

// Result is DebugStream's "step-by-step result" (spec §4.8).
type Result struct {
	Source  Source
	Stages  []StageResult
	Skipped string // explains a terminal/side-effect that was gated off, if any
}

var probeCounter int64

// DebugStream analyzes expr as a stream pipeline and samples each
// intermediate stage (and, if cfg allows, the terminal) by compiling a
// throwaway probe class and invoking it in the live VM via
// jdwp.Client.DefineAndInvokeStatic (spec §4.8). sourceValue/sourceRT is the
// already-resolved value of the pipeline's non-stream-chain root — for a
// SourceCollectionStream or SourceExisting source this is the receiver
// object (obtained via the ordinary simple-identifier evaluate() path, spec
// §4.6); for SourceStaticFactory/SourceArraysStream it is unused, since
// those sources are fully self-contained expressions.
func DebugStream(ctx context.Context, client *jdwp.Client, thread jdwp.ThreadID, declaringType jdwp.ReferenceTypeID, sourceValue jdwp.Value, expr string, cfg Config) (*Result, error) {
	analysis, err := AnalyzeStream(expr)
	if err != nil {
		return nil, &DebugError{Kind: ErrAnalysis, Message: err.Error()}
	}

	if analysis.Source.Kind == SourceExisting && !analysis.Source.HasCall {
		return nil, unsafeExistingStream(analysis.Source.Expr)
	}

	if cfg.SampleLimit <= 0 {
		cfg.SampleLimit = 20
	}
	deadline := time.Now().Add(budgetOrDefault(cfg.TimeBudget))

	result := &Result{Source: analysis.Source}

	for i := range analysis.Intermediates {
		if err := checkBudget(ctx, deadline); err != nil {
			return result, err
		}
		stage := analysis.Intermediates[i]
		src, needsSource := buildStageProbe(analysis, i, cfg.SampleLimit)
		preview, err := compileAndSample(client, thread, declaringType, sourceValue, needsSource, src)
		result.Stages = append(result.Stages, StageResult{Op: stage.Op, Raw: stage.Raw, Preview: preview, Err: err})
	}

	if analysis.Terminal == nil {
		return result, nil
	}
	if !cfg.AllowTerminalOps {
		result.Skipped = "terminal operation " + analysis.Terminal.Op + " not executed: allow_terminal_ops is false"
		return result, nil
	}
	if analysis.Terminal.SideEffecting && !cfg.AllowSideEffects {
		result.Skipped = "terminal operation " + analysis.Terminal.Op + " not executed: it has side effects and allow_side_effects is false"
		return result, nil
	}
	if err := checkBudget(ctx, deadline); err != nil {
		return result, err
	}
	src, needsSource := buildTerminalProbe(analysis, cfg.SampleLimit)
	preview, err := compileAndSample(client, thread, declaringType, sourceValue, needsSource, src)
	result.Stages = append(result.Stages, StageResult{Op: analysis.Terminal.Op, Raw: analysis.Terminal.Raw, Preview: preview, Err: err})
	return result, nil
}

func checkBudget(ctx context.Context, deadline time.Time) error {
	select {
	case <-ctx.Done():
		return &DebugError{Kind: ErrCancelled, Message: "stream debug cancelled"}
	default:
	}
	if time.Now().After(deadline) {
		return &DebugError{Kind: ErrTimeout, Message: "stream debug exceeded its time budget"}
	}
	return nil
}

// chainExpr builds "<base>.<op0>.<op1>...<opN>" for intermediates
// [0, throughIdx].
func chainExpr(analysis *Analysis, throughIdx int) string {
	var b strings.Builder
	b.WriteString(baseExpr(analysis.Source))
	for i := 0; i <= throughIdx && i < len(analysis.Intermediates); i++ {
		b.WriteByte('.')
		b.WriteString(analysis.Intermediates[i].Raw)
	}
	return b.String()
}

// baseExpr renders the pipeline's source as Java source text, referencing
// the injected "__src" parameter for sources that need one (spec §4.8's
// recognized-source list).
func baseExpr(s Source) string {
	switch s.Kind {
	case SourceCollectionStream:
		if s.Parallel {
			return "((java.util.Collection<?>) __src).parallelStream()"
		}
		return "((java.util.Collection<?>) __src).stream()"
	case SourceStaticFactory:
		return s.Class + "." + s.Method + "(" + strings.Join(s.Args, ", ") + ")"
	case SourceArraysStream:
		return "java.util.Arrays.stream(new " + s.ElemType + "[]{" + strings.Join(s.Args, ", ") + "})"
	case SourceExisting:
		// Simplification: treat a re-evaluable existing-stream expression as
		// a reference Stream. A source that is actually an IntStream/
		// LongStream/DoubleStream won't compile through this cast; the
		// caller sees that surface as an ErrJdwp/compile failure rather than
		// a silently wrong sample.
		return "((java.util.stream.Stream<?>) __src)"
	default:
		return "__src"
	}
}

func needsSourceParam(kind SourceKind) bool {
	return kind == SourceCollectionStream || kind == SourceExisting
}

// buildStageProbe builds the probe class source that samples the pipeline
// through intermediate stage idx (inclusive).
func buildStageProbe(analysis *Analysis, idx int, limit int) (string, bool) {
	className := fmt.Sprintf("__NovaStreamProbe_%d", atomic.AddInt64(&probeCounter, 1))
	expr := chainExpr(analysis, idx)
	return wrapSampleProbe(className, analysis.Source, expr, limit), needsSourceParam(analysis.Source.Kind)
}

func buildTerminalProbe(analysis *Analysis, limit int) (string, bool) {
	className := fmt.Sprintf("__NovaStreamProbe_%d", atomic.AddInt64(&probeCounter, 1))
	expr := chainExpr(analysis, len(analysis.Intermediates)-1) + "." + analysis.Terminal.Raw
	needsSrc := needsSourceParam(analysis.Source.Kind)
	if analysis.Terminal.Void {
		body := fmt.Sprintf(
			"java.util.function.Supplier<Object> __p = () -> { %s; return null; }; __p.get(); return \"void\";",
			expr,
		)
		return wrapProbe(className, body, needsSrc), needsSrc
	}
	return wrapProbe(className, "return "+expr+";", needsSrc), needsSrc
}

// wrapSampleProbe appends the stage's non-terminal sampling suffix (spec
// §4.8: "<source>.<ops so far>.limit(N).collect(toList())", boxed() first
// for a primitive source, and the permissive StreamSupport/spliterator form
// for an existing-stream source whose static type might not be Stream
// itself).
func wrapSampleProbe(className string, source Source, expr string, limit int) string {
	var sampled string
	switch {
	case source.Kind == SourceExisting:
		sampled = fmt.Sprintf(
			"java.util.stream.StreamSupport.stream(%s.spliterator(), false).limit(%d).collect(java.util.stream.Collectors.toList())",
			expr, limit,
		)
	case source.Primitive():
		sampled = fmt.Sprintf("%s.boxed().limit(%d).collect(java.util.stream.Collectors.toList())", expr, limit)
	default:
		sampled = fmt.Sprintf("%s.limit(%d).collect(java.util.stream.Collectors.toList())", expr, limit)
	}
	return wrapProbe(className, "return "+sampled+";", needsSourceParam(source.Kind))
}

func wrapProbe(className, body string, needsSource bool) string {
	param := ""
	if needsSource {
		param = "Object __src"
	}
	return fmt.Sprintf(
		"import java.util.*;\nimport java.util.stream.*;\npublic final class %s {\n    public static Object eval(%s) {\n        %s\n    }\n}\n",
		className, param, body,
	)
}

// compileAndSample compiles src with javac into a scratch directory,
// injects the resulting class through declaringType's class loader, and
// invokes its eval method (with sourceValue as the sole argument if the
// probe needs one), rendering the result the way variable previews are
// rendered (spec §4.8's output preview rules).
func compileAndSample(client *jdwp.Client, thread jdwp.ThreadID, declaringType jdwp.ReferenceTypeID, sourceValue jdwp.Value, needsSource bool, src string) (string, error) {
	className, bytecode, err := compileProbe(src)
	if err != nil {
		return "", &DebugError{Kind: ErrAnalysis, Message: "compile probe: " + err.Error(), Cause: err}
	}

	var args []jdwp.Value
	if needsSource {
		args = []jdwp.Value{sourceValue}
	}
	res, err := client.DefineAndInvokeStatic(thread, declaringType, className, bytecode, "eval", args)
	if err != nil {
		return "", &DebugError{Kind: ErrJdwp, Message: "sample stage: " + err.Error(), Cause: err}
	}
	if res.Exception != 0 {
		return "", &DebugError{Kind: ErrJdwp, Message: "stage threw an exception", Cause: nil}
	}
	return client.RenderValue(res.Value), nil
}

// compileProbe writes src to a scratch directory keyed by process id (spec
// §9: "every hot-swap invocation uses a scoped directory keyed by process
// id; cleanup is guaranteed on all exit paths" — stream debug's probe
// classes follow the same discipline as nova/dap's hot swap), compiles it
// with javac, and returns the class's binary name plus its bytecode.
func compileProbe(src string) (className string, bytecode []byte, err error) {
	idx := strings.Index(src, "class ")
	if idx < 0 {
		return "", nil, errors.New("malformed probe source")
	}
	rest := src[idx+len("class "):]
	className = strings.Fields(rest)[0]

	dir, err := os.MkdirTemp("", fmt.Sprintf("nova-streamdebug-%d-", os.Getpid()))
	if err != nil {
		return "", nil, err
	}
	defer os.RemoveAll(dir)

	srcPath := filepath.Join(dir, className+".java")
	if err := os.WriteFile(srcPath, []byte(src), 0o644); err != nil {
		return "", nil, err
	}
	cmd := exec.Command("javac", "-d", dir, srcPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", nil, errors.Errorf("javac failed: %s", string(out))
	}
	bytecode, err = os.ReadFile(filepath.Join(dir, className+".class"))
	if err != nil {
		return "", nil, err
	}
	log.Debugf("compiled stream-debug probe %s (%d bytes)", className, len(bytecode))
	return className, bytecode, nil
}
