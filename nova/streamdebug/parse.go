package streamdebug

import "strings"

// SourceKind classifies how a stream pipeline's source was produced (spec
// §4.8's recognized-source list).
type SourceKind int

const (
	SourceCollectionStream SourceKind = iota // <coll>.stream()/parallelStream()
	SourceStaticFactory                      // Stream/IntStream/LongStream/DoubleStream factory methods
	SourceArraysStream                       // Arrays.stream(new T[]{...})
	SourceExisting                           // an already-built stream expression
)

// Source is a recognized stream source (spec §4.8's "analyze into
// {source, intermediates[], terminal?}").
type Source struct {
	Kind     SourceKind
	Expr     string // CollectionStream/Existing: the receiver/full expression text
	Class    string // StaticFactory: "Stream"/"IntStream"/"LongStream"/"DoubleStream"
	Method   string // StaticFactory: "of"/"empty"/"iterate"/"generate"/"concat"/range/rangeClosed
	ElemType string // ArraysStream: "int"/"long"/"double" inferred from the array literal
	Args     []string
	Parallel bool // CollectionStream: stream() vs parallelStream()
	HasCall  bool // Existing: whether Expr contains a call (re-evaluable) or is a pure access path
	Raw      string
}

// Primitive reports whether this source yields a primitive stream
// (IntStream/LongStream/DoubleStream), which needs boxed() before a
// reference-typed collect.
func (s Source) Primitive() bool {
	switch s.Kind {
	case SourceStaticFactory:
		return s.Class == "IntStream" || s.Class == "LongStream" || s.Class == "DoubleStream"
	case SourceArraysStream:
		return true
	default:
		return false
	}
}

// Intermediate is one non-terminal stream operation (filter/map/limit/etc).
type Intermediate struct {
	Op   string
	Args []string
	Raw  string
}

// Terminal is the chain's terminal operation, if the analyzed expression
// has one.
type Terminal struct {
	Op            string
	Args          []string
	Raw           string
	Void          bool // forEach/forEachOrdered: no return value to sample
	SideEffecting bool // forEach/forEachOrdered/peek (spec §4.8: gated on allow_side_effects)
}

// Analysis is the result of AnalyzeStream.
type Analysis struct {
	Source        Source
	Intermediates []Intermediate
	Terminal      *Terminal
}

var staticFactoryMethods = map[string]map[string]bool{
	"Stream":      {"of": true, "empty": true, "iterate": true, "generate": true, "concat": true},
	"IntStream":   {"of": true, "range": true, "rangeClosed": true, "iterate": true, "generate": true, "empty": true, "concat": true},
	"LongStream":  {"of": true, "range": true, "rangeClosed": true, "iterate": true, "generate": true, "empty": true, "concat": true},
	"DoubleStream": {"of": true, "range": true, "rangeClosed": true, "iterate": true, "generate": true, "empty": true, "concat": true},
}

var intermediateOps = map[string]bool{
	"filter": true, "map": true, "mapToObj": true, "mapToInt": true, "mapToLong": true, "mapToDouble": true,
	"flatMap": true, "flatMapToInt": true, "flatMapToLong": true, "flatMapToDouble": true,
	"sorted": true, "distinct": true, "limit": true, "skip": true, "boxed": true,
	"asLongStream": true, "asDoubleStream": true, "asIntStream": true,
	"takeWhile": true, "dropWhile": true,
}

var terminalOps = map[string]bool{
	"collect": true, "toList": true, "toSet": true, "toArray": true, "count": true,
	"sum": true, "average": true, "min": true, "max": true, "reduce": true,
	"anyMatch": true, "allMatch": true, "noneMatch": true,
	"findFirst": true, "findAny": true, "forEach": true, "forEachOrdered": true,
}

var voidTerminalOps = map[string]bool{"forEach": true, "forEachOrdered": true}

// AnalysisError reports a dotted-call chain the parser can't make sense of
// (spec §7's Analysis error kind).
type AnalysisError struct {
	Message string
	Pos     Position
}

func (e *AnalysisError) Error() string { return e.Message }

// AnalyzeStream parses expr into its source, intermediate ops, and terminal
// op (spec §4.8).
func AnalyzeStream(expr string) (*Analysis, error) {
	raws := splitTopLevelDots(expr)
	var segs []segment
	for _, r := range raws {
		seg, err := parseSegment(r)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}
	if len(segs) == 0 {
		return nil, &AnalysisError{Message: "empty expression"}
	}

	callIdx := -1
	for i, s := range segs {
		if s.isCall {
			callIdx = i
			break
		}
	}

	if callIdx == -1 {
		// No call anywhere: a pure access path, e.g. "this.field" — an
		// existing stream value, unsafe to sample (no re-evaluable call).
		return &Analysis{Source: Source{Kind: SourceExisting, Expr: strings.TrimSpace(expr), HasCall: false, Raw: expr}}, nil
	}

	call := segs[callIdx]
	receiver := joinSegments(segs[:callIdx])

	var src Source
	switch {
	case staticFactoryMethods[receiver] != nil && staticFactoryMethods[receiver][call.name]:
		src = Source{Kind: SourceStaticFactory, Class: receiver, Method: call.name, Args: call.args, Raw: call.raw}
	case receiver == "Arrays" && call.name == "stream":
		src = Source{Kind: SourceArraysStream, ElemType: inferArrayElemType(call.args), Args: call.args, Raw: call.raw}
	case (call.name == "stream" || call.name == "parallelStream") && len(call.args) == 0:
		if receiver == "" {
			receiver = "this"
		}
		src = Source{Kind: SourceCollectionStream, Expr: receiver, Parallel: call.name == "parallelStream", Raw: call.raw}
	default:
		src = Source{Kind: SourceExisting, Expr: joinSegments(segs[:callIdx+1]), HasCall: true, Raw: joinSegments(segs[:callIdx+1])}
	}

	rest := segs[callIdx+1:]
	analysis := &Analysis{Source: src}
	for i, s := range rest {
		last := i == len(rest)-1
		switch {
		case terminalOps[s.name]:
			analysis.Terminal = &Terminal{
				Op: s.name, Args: s.args, Raw: s.raw,
				Void:          voidTerminalOps[s.name],
				SideEffecting: voidTerminalOps[s.name],
			}
		case last && s.name == "peek":
			// spec §4.8 groups peek with forEach as a "side-effecting
			// terminal" when it ends the chain, even though the Stream API
			// itself treats peek as intermediate.
			analysis.Terminal = &Terminal{Op: s.name, Args: s.args, Raw: s.raw, SideEffecting: true}
		case intermediateOps[s.name]:
			analysis.Intermediates = append(analysis.Intermediates, Intermediate{Op: s.name, Args: s.args, Raw: s.raw})
		default:
			return nil, &AnalysisError{Message: "unrecognized stream operation " + s.name}
		}
	}
	return analysis, nil
}

func inferArrayElemType(args []string) string {
	if len(args) == 0 {
		return ""
	}
	a := args[0]
	switch {
	case strings.Contains(a, "int["):
		return "int"
	case strings.Contains(a, "long["):
		return "long"
	case strings.Contains(a, "double["):
		return "double"
	default:
		return ""
	}
}

// segment is one '.'-separated piece of a dotted call chain: an optional
// leading type witness (<T>), a name, and — if it was a call — its
// top-level comma-separated arguments.
type segment struct {
	name     string
	typeArgs string
	args     []string
	isCall   bool
	raw      string
}

func joinSegments(segs []segment) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = s.raw
	}
	return strings.Join(parts, ".")
}

func parseSegment(raw string) (segment, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return segment{}, &AnalysisError{Message: "empty segment in expression"}
	}
	if !isIdentStart(text[0]) && text[0] != '<' {
		// Not a plain identifier-led segment (e.g. "new int[]{1,2,3}"):
		// treat opaquely as a non-call expression segment.
		return segment{name: text, raw: text}, nil
	}

	i := 0
	if text[0] == '<' {
		depth := 0
		start := i
		for i < len(text) {
			if text[i] == '<' {
				depth++
			} else if text[i] == '>' {
				depth--
				if depth == 0 {
					i++
					break
				}
			}
			i++
		}
		typeArgs := text[start:i]
		rest, err := parseSegment(text[i:])
		if err != nil {
			return segment{}, err
		}
		rest.typeArgs = typeArgs
		rest.raw = raw
		return rest, nil
	}

	start := i
	for i < len(text) && isIdentPart(text[i]) {
		i++
	}
	name := text[start:i]
	for i < len(text) && text[i] == ' ' {
		i++
	}
	if i >= len(text) || text[i] != '(' {
		return segment{name: name, raw: text}, nil
	}

	depth := 0
	argStart := i + 1
	var args []string
	j := i
	for j < len(text) {
		switch text[j] {
		case '"', '\'':
			j = skipLiteral(text, j)
			continue
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 && text[j] == ')' {
				if trimmed := strings.TrimSpace(text[argStart:j]); trimmed != "" {
					args = append(args, splitTopLevelCommas(trimmed)...)
				}
				j++
				goto done
			}
		case ',':
			// handled by splitTopLevelCommas on the whole arg span
		}
		j++
	}
done:
	return segment{name: name, args: args, isCall: true, raw: text}, nil
}

// splitTopLevelDots splits s at '.' characters not nested inside
// ()/[]/{} or a string/char literal.
func splitTopLevelDots(s string) []string {
	var out []string
	depth := 0
	start := 0
	i := 0
	for i < len(s) {
		switch s[i] {
		case '"', '\'':
			i = skipLiteral(s, i)
			continue
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '.':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
		i++
	}
	out = append(out, s[start:])
	return out
}

// splitTopLevelCommas splits s at top-level commas, respecting nested
// ()/[]/{} and literals — used for an argument list's contents.
func splitTopLevelCommas(s string) []string {
	var out []string
	depth := 0
	start := 0
	i := 0
	for i < len(s) {
		switch s[i] {
		case '"', '\'':
			i = skipLiteral(s, i)
			continue
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
		i++
	}
	out = append(out, strings.TrimSpace(s[start:]))
	return out
}

// skipLiteral advances past a quoted string/char literal starting at i
// (s[i] is the opening quote), handling backslash escapes, and returns the
// index just past the closing quote (or len(s) if unterminated).
func skipLiteral(s string, i int) int {
	quote := s[i]
	i++
	for i < len(s) && s[i] != quote {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		i++
	}
	if i < len(s) {
		i++
	}
	return i
}
