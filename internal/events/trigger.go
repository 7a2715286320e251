package events

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/parser"

	"github.com/fieldwork-io/fieldwork/internal/document"
)

// Resolver maps a dotted identifier from a trigger expression to its
// current value, or nil when unanswered or unknown.
type Resolver func(identifier string) any

// Expression is a pre-parsed trigger. Parsing happens once per rule at
// catalog-build time; Evaluate runs per predicate read.
type Expression interface {
	Source() string
	Identifiers() []string
	Evaluate(resolve Resolver) (any, error)
}

// Evaluator parses trigger expressions. The expression grammar is a
// collaborator concern; the engine only needs Parse-once semantics and a
// resolver-driven Evaluate.
type Evaluator interface {
	Parse(source string) (Expression, error)
}

// CUEEvaluator evaluates triggers as CUE expressions. Identifiers
// referenced by the expression are resolved through the Resolver into a
// scope struct the expression is built against.
type CUEEvaluator struct {
	ctx *cue.Context
}

// NewCUEEvaluator creates the default trigger evaluator.
func NewCUEEvaluator() *CUEEvaluator {
	return &CUEEvaluator{ctx: cuecontext.New()}
}

// Parse compiles the source to an AST and records the identifiers it
// references. A parse failure is a definition error.
func (e *CUEEvaluator) Parse(source string) (Expression, error) {
	expr, err := parser.ParseExpr("trigger", source)
	if err != nil {
		return nil, fmt.Errorf("parsing trigger %q: %w", source, err)
	}
	return &cueExpression{
		ctx:    e.ctx,
		source: source,
		expr:   expr,
		idents: collectIdentifiers(expr),
	}, nil
}

type cueExpression struct {
	ctx    *cue.Context
	source string
	expr   ast.Expr
	idents []string
}

func (x *cueExpression) Source() string        { return x.source }
func (x *cueExpression) Identifiers() []string { return x.idents }

// Evaluate builds a scope struct holding every referenced identifier's
// resolved value and evaluates the expression against it. Evaluation
// errors surface to the caller: a broken trigger is a definition bug and
// must not be masked.
func (x *cueExpression) Evaluate(resolve Resolver) (any, error) {
	scope := document.Map{}
	for _, ident := range x.idents {
		assignDotted(scope, ident, resolve(ident))
	}
	scopeVal := x.ctx.Encode(scope)
	if err := scopeVal.Err(); err != nil {
		return nil, fmt.Errorf("trigger %q: encoding scope: %w", x.source, err)
	}
	v := x.ctx.BuildExpr(x.expr, cue.Scope(scopeVal), cue.InferBuiltins(true))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("trigger %q: %w", x.source, err)
	}
	return cueToGo(v)
}

// assignDotted writes a value into nested maps along a dotted path,
// leaving siblings resolved earlier in place.
func assignDotted(scope document.Map, dotted string, value any) {
	segs := strings.Split(dotted, ".")
	cur := scope
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg].(document.Map)
		if !ok {
			next = document.Map{}
			cur[seg] = next
		}
		cur = next
	}
	last := segs[len(segs)-1]
	if _, exists := cur[last]; !exists {
		cur[last] = value
	}
}

// collectIdentifiers gathers the dotted identifiers an expression reads.
// Call targets that are bare identifiers are treated as builtins (len,
// and, or) and skipped.
func collectIdentifiers(expr ast.Expr) []string {
	seen := make(map[string]bool)
	var order []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}
	var walk func(n ast.Expr)
	walk = func(n ast.Expr) {
		switch x := n.(type) {
		case *ast.Ident:
			add(x.Name)
		case *ast.SelectorExpr:
			if chain, ok := selectorChain(x); ok {
				add(chain)
				return
			}
			walk(x.X)
		case *ast.BinaryExpr:
			walk(x.X)
			walk(x.Y)
		case *ast.UnaryExpr:
			walk(x.X)
		case *ast.ParenExpr:
			walk(x.X)
		case *ast.CallExpr:
			if _, builtin := x.Fun.(*ast.Ident); !builtin {
				walk(x.Fun)
			}
			for _, arg := range x.Args {
				walk(arg)
			}
		case *ast.IndexExpr:
			walk(x.X)
			walk(x.Index)
		case *ast.SliceExpr:
			walk(x.X)
		case *ast.ListLit:
			for _, el := range x.Elts {
				if e, ok := el.(ast.Expr); ok {
					walk(e)
				}
			}
		case *ast.Interpolation:
			for _, el := range x.Elts {
				walk(el)
			}
		}
	}
	walk(expr)
	return order
}

// selectorChain flattens a pure identifier chain (a.b.c) to its dotted
// form. Chains with computed segments are not flattened.
func selectorChain(sel *ast.SelectorExpr) (string, bool) {
	label, ok := sel.Sel.(*ast.Ident)
	if !ok {
		return "", false
	}
	switch x := sel.X.(type) {
	case *ast.Ident:
		return x.Name + "." + label.Name, true
	case *ast.SelectorExpr:
		prefix, ok := selectorChain(x)
		if !ok {
			return "", false
		}
		return prefix + "." + label.Name, true
	default:
		return "", false
	}
}

// cueToGo concretizes an evaluated CUE value into JSON-like Go values.
func cueToGo(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		return v.Bool()
	case cue.StringKind:
		return v.String()
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return v.Float64()
		}
		return i, nil
	case cue.FloatKind, cue.NumberKind:
		return v.Float64()
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		var out []any
		for iter.Next() {
			item, err := cueToGo(iter.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	case cue.StructKind:
		out := document.Map{}
		if err := v.Decode(&out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("trigger evaluated to non-concrete value: %v", v)
	}
}

// Truthy applies the truthiness rules triggers are written against:
// nil, false, zero, empty string and empty collections are false.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case int64:
		return x != 0
	case int:
		return x != 0
	case []any:
		return len(x) > 0
	case document.Map:
		return len(x) > 0
	default:
		return true
	}
}
