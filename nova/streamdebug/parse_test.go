package streamdebug

import (
	"context"
	"strings"
	"testing"

	"github.com/nova-ide/nova/nova/jdwp"
)

func TestAnalyzeStreamCollectionStream(t *testing.T) {
	analysis, err := AnalyzeStream("names.stream().filter(s -> s.length() > 3).map(String::toUpperCase).sorted()")
	if err != nil {
		t.Fatalf("AnalyzeStream: %v", err)
	}
	if analysis.Source.Kind != SourceCollectionStream {
		t.Fatalf("source kind = %v, want SourceCollectionStream", analysis.Source.Kind)
	}
	if analysis.Source.Expr != "names" {
		t.Fatalf("source expr = %q, want %q", analysis.Source.Expr, "names")
	}
	if len(analysis.Intermediates) != 3 {
		t.Fatalf("got %d intermediates, want 3: %+v", len(analysis.Intermediates), analysis.Intermediates)
	}
	if analysis.Intermediates[0].Op != "filter" || analysis.Intermediates[1].Op != "map" || analysis.Intermediates[2].Op != "sorted" {
		t.Fatalf("unexpected op sequence: %+v", analysis.Intermediates)
	}
	if analysis.Terminal != nil {
		t.Fatalf("expected no terminal, got %+v", analysis.Terminal)
	}
}

func TestAnalyzeStreamStaticFactoryWithTerminal(t *testing.T) {
	analysis, err := AnalyzeStream("Stream.of(1, 2, 3).map(x -> x * 2).count()")
	if err != nil {
		t.Fatalf("AnalyzeStream: %v", err)
	}
	if analysis.Source.Kind != SourceStaticFactory || analysis.Source.Class != "Stream" || analysis.Source.Method != "of" {
		t.Fatalf("unexpected source: %+v", analysis.Source)
	}
	if analysis.Terminal == nil || analysis.Terminal.Op != "count" {
		t.Fatalf("expected count terminal, got %+v", analysis.Terminal)
	}
	if analysis.Terminal.Void || analysis.Terminal.SideEffecting {
		t.Fatalf("count() is neither void nor side-effecting: %+v", analysis.Terminal)
	}
}

func TestAnalyzeStreamForEachIsSideEffectingAndVoid(t *testing.T) {
	analysis, err := AnalyzeStream("items.stream().forEach(System.out::println)")
	if err != nil {
		t.Fatalf("AnalyzeStream: %v", err)
	}
	if analysis.Terminal == nil || !analysis.Terminal.Void || !analysis.Terminal.SideEffecting {
		t.Fatalf("expected a void, side-effecting terminal, got %+v", analysis.Terminal)
	}
}

func TestAnalyzeStreamTrailingPeekIsTreatedAsSideEffectingTerminal(t *testing.T) {
	analysis, err := AnalyzeStream("xs.stream().peek(System.out::println)")
	if err != nil {
		t.Fatalf("AnalyzeStream: %v", err)
	}
	if analysis.Terminal == nil || analysis.Terminal.Op != "peek" || !analysis.Terminal.SideEffecting {
		t.Fatalf("expected peek to end the chain as a side-effecting terminal, got %+v", analysis.Terminal)
	}
}

func TestAnalyzeStreamArraysStreamInfersPrimitiveElemType(t *testing.T) {
	analysis, err := AnalyzeStream("Arrays.stream(new int[]{1, 2, 3}).filter(x -> x > 1)")
	if err != nil {
		t.Fatalf("AnalyzeStream: %v", err)
	}
	if analysis.Source.Kind != SourceArraysStream || analysis.Source.ElemType != "int" {
		t.Fatalf("unexpected source: %+v", analysis.Source)
	}
	if !analysis.Source.Primitive() {
		t.Fatal("expected an int[] source to report Primitive() == true")
	}
}

func TestAnalyzeStreamPureAccessPathIsNotACall(t *testing.T) {
	analysis, err := AnalyzeStream("this.cachedStream")
	if err != nil {
		t.Fatalf("AnalyzeStream: %v", err)
	}
	if analysis.Source.Kind != SourceExisting || analysis.Source.HasCall {
		t.Fatalf("expected a non-call existing source, got %+v", analysis.Source)
	}
}

func TestAnalyzeStreamRejectsUnrecognizedOperation(t *testing.T) {
	_, err := AnalyzeStream("xs.stream().bogusOp()")
	if err == nil {
		t.Fatal("expected an error for an unrecognized stream operation")
	}
}

func TestDebugStreamRejectsUnsafeExistingStream(t *testing.T) {
	_, err := DebugStream(context.Background(), nil, 0, 0, jdwp.Value{}, "this.cachedStream", DefaultConfig())
	debugErr, ok := err.(*DebugError)
	if !ok {
		t.Fatalf("expected *DebugError, got %T (%v)", err, err)
	}
	if debugErr.Kind != ErrUnsafeExistingStream {
		t.Fatalf("kind = %v, want ErrUnsafeExistingStream", debugErr.Kind)
	}
}

func TestBuildStageProbeEmbedsSourceAndOpsInOrder(t *testing.T) {
	analysis, err := AnalyzeStream("names.stream().filter(s -> s.length() > 3).map(String::toUpperCase)")
	if err != nil {
		t.Fatalf("AnalyzeStream: %v", err)
	}
	src, needsSource := buildStageProbe(analysis, 0, 20)
	if !needsSource {
		t.Fatal("a Collection source needs __src")
	}
	if !strings.Contains(src, "((java.util.Collection<?>) __src).stream()") {
		t.Fatalf("probe source missing collection cast/stream() call:\n%s", src)
	}
	if !strings.Contains(src, "filter(s -> s.length() > 3)") {
		t.Fatalf("probe source missing stage 0's op:\n%s", src)
	}
	if strings.Contains(src, "map(String::toUpperCase)") {
		t.Fatalf("probe for stage 0 should not include stage 1's op:\n%s", src)
	}
	if !strings.Contains(src, ".limit(20).collect(java.util.stream.Collectors.toList())") {
		t.Fatalf("probe source missing sample suffix:\n%s", src)
	}
}

func TestBuildStageProbeBoxesPrimitiveSource(t *testing.T) {
	analysis, err := AnalyzeStream("IntStream.range(0, 10).filter(x -> x % 2 == 0)")
	if err != nil {
		t.Fatalf("AnalyzeStream: %v", err)
	}
	src, needsSource := buildStageProbe(analysis, 0, 5)
	if needsSource {
		t.Fatal("a static-factory source is self-contained and needs no __src")
	}
	if !strings.Contains(src, ".boxed().limit(5)") {
		t.Fatalf("expected boxed() before sampling a primitive stream:\n%s", src)
	}
}

func TestBuildTerminalProbeWrapsVoidTerminalInSupplier(t *testing.T) {
	analysis, err := AnalyzeStream("items.stream().forEach(System.out::println)")
	if err != nil {
		t.Fatalf("AnalyzeStream: %v", err)
	}
	src, _ := buildTerminalProbe(analysis, 20)
	if !strings.Contains(src, "java.util.function.Supplier<Object>") || !strings.Contains(src, `return "void";`) {
		t.Fatalf("expected a Supplier wrapper reporting \"void\":\n%s", src)
	}
}
