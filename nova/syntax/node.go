package syntax

// NodeKind enumerates the concrete syntax tree's node types. The tree is a
// green tree: immutable once built, persistent, and shareable — every node
// knows its own text range and children.
type NodeKind int

const (
	KindError NodeKind = iota

	KindCompilationUnit
	KindPackageDecl
	KindImportDecl
	KindModuleDecl
	KindRequiresDirective
	KindExportsDirective
	KindOpensDirective
	KindUsesDirective
	KindProvidesDirective

	KindClassDecl
	KindInterfaceDecl
	KindEnumDecl
	KindEnumConstant
	KindRecordDecl
	KindAnnotationDecl

	KindFieldDecl
	KindMethodDecl
	KindConstructorDecl
	KindInitializerBlock

	KindModifiers
	KindAnnotation
	KindAnnotationElement
	KindTypeParameters
	KindTypeParameter
	KindTypeArguments
	KindTypeArgument
	KindType
	KindArrayType
	KindParameterizedType
	KindWildcard

	KindExtendsClause
	KindImplementsClause
	KindPermitsClause

	KindParameters
	KindParameter
	KindReceiverParameter
	KindThrowsList

	KindBlock
	KindEmptyStmt
	KindExprStmt
	KindIfStmt
	KindForStmt
	KindForInit
	KindForUpdate
	KindEnhancedForStmt
	KindWhileStmt
	KindDoStmt
	KindSwitchStmt
	KindSwitchCase
	KindSwitchLabel
	KindReturnStmt
	KindBreakStmt
	KindContinueStmt
	KindThrowStmt
	KindTryStmt
	KindCatchClause
	KindFinallyClause
	KindResourceSpec
	KindSynchronizedStmt
	KindAssertStmt
	KindLabeledStmt
	KindLocalVarDecl
	KindLocalClassDecl
	KindYieldStmt

	KindAssignExpr
	KindTernaryExpr
	KindBinaryExpr
	KindUnaryExpr
	KindPostfixExpr
	KindCastExpr
	KindInstanceofExpr
	KindCallExpr
	KindMethodRef
	KindFieldAccess
	KindArrayAccess
	KindNewExpr
	KindNewArrayExpr
	KindArrayInit
	KindLambdaExpr
	KindParenExpr
	KindLiteral
	KindIdentifier
	KindQualifiedName
	KindThis
	KindSuper
	KindClassLiteral
	KindSwitchExpr
	KindArgumentList
)

var nodeKindNames = map[NodeKind]string{
	KindError: "Error", KindCompilationUnit: "CompilationUnit", KindPackageDecl: "PackageDecl",
	KindImportDecl: "ImportDecl", KindModuleDecl: "ModuleDecl", KindRequiresDirective: "RequiresDirective",
	KindExportsDirective: "ExportsDirective", KindOpensDirective: "OpensDirective",
	KindUsesDirective: "UsesDirective", KindProvidesDirective: "ProvidesDirective",
	KindClassDecl: "ClassDecl", KindInterfaceDecl: "InterfaceDecl", KindEnumDecl: "EnumDecl",
	KindEnumConstant: "EnumConstant", KindRecordDecl: "RecordDecl", KindAnnotationDecl: "AnnotationDecl",
	KindFieldDecl: "FieldDecl", KindMethodDecl: "MethodDecl", KindConstructorDecl: "ConstructorDecl",
	KindInitializerBlock: "InitializerBlock",
	KindModifiers:        "Modifiers", KindAnnotation: "Annotation", KindAnnotationElement: "AnnotationElement",
	KindTypeParameters: "TypeParameters", KindTypeParameter: "TypeParameter",
	KindTypeArguments: "TypeArguments", KindTypeArgument: "TypeArgument", KindType: "Type",
	KindArrayType: "ArrayType", KindParameterizedType: "ParameterizedType", KindWildcard: "Wildcard",
	KindExtendsClause: "ExtendsClause", KindImplementsClause: "ImplementsClause", KindPermitsClause: "PermitsClause",
	KindParameters: "Parameters", KindParameter: "Parameter", KindReceiverParameter: "ReceiverParameter",
	KindThrowsList: "ThrowsList",
	KindBlock:    "Block", KindEmptyStmt: "EmptyStmt", KindExprStmt: "ExprStmt", KindIfStmt: "IfStmt",
	KindForStmt: "ForStmt", KindForInit: "ForInit", KindForUpdate: "ForUpdate",
	KindEnhancedForStmt: "EnhancedForStmt", KindWhileStmt: "WhileStmt", KindDoStmt: "DoStmt",
	KindSwitchStmt: "SwitchStmt", KindSwitchCase: "SwitchCase", KindSwitchLabel: "SwitchLabel",
	KindReturnStmt: "ReturnStmt", KindBreakStmt: "BreakStmt", KindContinueStmt: "ContinueStmt",
	KindThrowStmt: "ThrowStmt", KindTryStmt: "TryStmt", KindCatchClause: "CatchClause",
	KindFinallyClause: "FinallyClause", KindResourceSpec: "ResourceSpec",
	KindSynchronizedStmt: "SynchronizedStmt", KindAssertStmt: "AssertStmt", KindLabeledStmt: "LabeledStmt",
	KindLocalVarDecl: "LocalVarDecl", KindLocalClassDecl: "LocalClassDecl", KindYieldStmt: "YieldStmt",
	KindAssignExpr: "AssignExpr", KindTernaryExpr: "TernaryExpr", KindBinaryExpr: "BinaryExpr",
	KindUnaryExpr: "UnaryExpr", KindPostfixExpr: "PostfixExpr", KindCastExpr: "CastExpr",
	KindInstanceofExpr: "InstanceofExpr", KindCallExpr: "CallExpr", KindMethodRef: "MethodRef",
	KindFieldAccess: "FieldAccess", KindArrayAccess: "ArrayAccess", KindNewExpr: "NewExpr",
	KindNewArrayExpr: "NewArrayExpr", KindArrayInit: "ArrayInit", KindLambdaExpr: "LambdaExpr",
	KindParenExpr: "ParenExpr", KindLiteral: "Literal", KindIdentifier: "Identifier",
	KindQualifiedName: "QualifiedName", KindThis: "This", KindSuper: "Super",
	KindClassLiteral: "ClassLiteral", KindSwitchExpr: "SwitchExpr", KindArgumentList: "ArgumentList",
}

func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// ParseError is a recoverable diagnostic recorded while building the tree.
// The tree is still produced in full; ParseError only annotates a range.
type ParseError struct {
	Message  string
	Expected []TokenKind
	Got      Token
	Span     Span
}

// Node is a green-tree node: immutable once built, carrying its own text
// range and either a single terminal Token or a list of child Nodes.
type Node struct {
	Kind     NodeKind
	Span     Span
	Children []*Node
	Token    *Token
	Err      *ParseError
}

func (n *Node) AddChild(child *Node) {
	if child != nil {
		n.Children = append(n.Children, child)
	}
}

func (n *Node) IsError() bool { return n.Kind == KindError }

func (n *Node) FirstChildOfKind(kind NodeKind) *Node {
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

func (n *Node) ChildrenOfKind(kind NodeKind) []*Node {
	var result []*Node
	for _, c := range n.Children {
		if c.Kind == kind {
			result = append(result, c)
		}
	}
	return result
}

func (n *Node) TokenLiteral() string {
	if n.Token != nil {
		return n.Token.Literal
	}
	return ""
}

// Tokens returns every significant token spanned by this node, in source
// order, including those owned by descendant nodes.
func (n *Node) Tokens() []Token {
	var out []Token
	n.collectTokens(&out)
	return out
}

func (n *Node) collectTokens(out *[]Token) {
	if n == nil {
		return
	}
	if n.Token != nil {
		*out = append(*out, *n.Token)
		return
	}
	for _, c := range n.Children {
		c.collectTokens(out)
	}
}

// Text reconstructs this node's source text by concatenating every spanned
// token's FullText() in order. Several declaration-level productions don't
// thread their punctuation tokens (braces, parens, semicolons) onto the
// tree as children, so this can be missing a character here and there for
// an interior node; SourceText is exact at every level, including the root.
func (n *Node) Text() string {
	var buf []byte
	for _, t := range n.Tokens() {
		buf = append(buf, t.FullText()...)
	}
	return string(buf)
}

// SourceText slices src directly by this node's span. Unlike Text, it is
// exact regardless of whether every token in the node's range was threaded
// onto the tree as a child; ParseCompilationUnit widens the root's span to
// [0, len(src)) so CompilationUnit.SourceText(src) always equals src
// (spec §3, §8's round-trip guarantee).
func (n *Node) SourceText(src []byte) string {
	start, end := n.Span.Start.Offset, n.Span.End.Offset
	if start < 0 {
		start = 0
	}
	if end > len(src) {
		end = len(src)
	}
	if start > end {
		return ""
	}
	return string(src[start:end])
}

func (n *Node) String() string { return n.stringIndent(0, false) }

func (n *Node) StringWithPositions() string { return n.stringIndent(0, true) }

func (n *Node) stringIndent(indent int, showPositions bool) string {
	prefix := make([]byte, indent*2)
	for i := range prefix {
		prefix[i] = ' '
	}
	result := string(prefix) + n.Kind.String()
	if showPositions {
		result += " [" + n.Span.Start.String() + "-" + n.Span.End.String() + "]"
	}
	if n.Token != nil {
		result += " " + n.Token.Literal
	}
	if n.Err != nil {
		result += " ERROR: " + n.Err.Message
	}
	result += "\n"
	for _, c := range n.Children {
		result += c.stringIndent(indent+1, showPositions)
	}
	return result
}

// Walk visits every node in the tree in depth-first, pre-order fashion.
// Returning false from visit stops descending into that node's children.
func Walk(n *Node, visit func(*Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, visit)
	}
}
