package expressions

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/veldt/synapse/pkg/schema"
)

// Evaluator parses and evaluates flat infix expressions: binary and
// unary operators over numeric-like operands, booleans, null, and
// {{path}} references. Expressions compile to a postfix (RPN) token
// sequence via shunting-yard; compiled sequences are cached and reused
// across goroutines.
//
// The operator table must be fully registered before the Evaluator is
// constructed: the tokenizer pattern is derived from the registered
// symbols.
type Evaluator struct {
	ops      *OperatorTable
	resolver *Resolver
	pattern  *regexp.Regexp

	mu    sync.RWMutex
	cache map[string][]string
}

// NewEvaluator creates an Evaluator over the given operators and path
// resolver.
func NewEvaluator(ops *OperatorTable, resolver *Resolver) *Evaluator {
	return &Evaluator{
		ops:      ops,
		resolver: resolver,
		pattern:  buildTokenPattern(ops),
		cache:    make(map[string][]string),
	}
}

// buildTokenPattern assembles the single tokenizer expression. Priority
// order: {{...}} placeholders, numeric literals, identifier-like tokens
// (word operators, booleans, null, bare identifiers), registered
// symbolic operators (longest first), then any single non-space
// character (covers parentheses).
func buildTokenPattern(ops *OperatorTable) *regexp.Regexp {
	alts := []string{
		`\{\{[^{}]*\}\}`,
		`\d+(?:\.\d+)?`,
		`[A-Za-z_][A-Za-z0-9_.]*`,
	}
	for _, sym := range ops.symbols() {
		if len(sym) > 1 && !isWordToken(sym) {
			alts = append(alts, regexp.QuoteMeta(sym))
		}
	}
	alts = append(alts, `\S`)
	return regexp.MustCompile(strings.Join(alts, "|"))
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	r := s[0]
	if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !(c == '_' || c == '.' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

func isWordToken(s string) bool {
	for _, r := range s {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// Evaluate parses (or retrieves from cache) an expression and evaluates
// it against the given variable bag.
func (e *Evaluator) Evaluate(ctx context.Context, expr string, vars map[string]any) (any, error) {
	rpn, err := e.getOrCompile(expr)
	if err != nil {
		return nil, err
	}

	var stack []any
	pop := func() (any, bool) {
		if len(stack) == 0 {
			return nil, false
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, true
	}

	for _, tok := range rpn {
		if op, ok := e.ops.Binary(tok); ok {
			// First popped is the right operand.
			right, okR := pop()
			left, okL := pop()
			if !okR || !okL {
				return nil, schema.NewErrorf(schema.ErrCodeInvalidToken,
					"operator %q is missing operands in %q", tok, expr)
			}
			out, err := op.Apply(left, right)
			if err != nil {
				return nil, wrapOperandErr(err, expr)
			}
			stack = append(stack, out)
			continue
		}

		if op, ok := e.ops.Unary(tok); ok {
			operand, okO := pop()
			if !okO {
				return nil, schema.NewErrorf(schema.ErrCodeInvalidToken,
					"operator %q is missing its operand in %q", tok, expr)
			}
			out, err := op.Apply(operand)
			if err != nil {
				return nil, wrapOperandErr(err, expr)
			}
			stack = append(stack, out)
			continue
		}

		switch strings.ToLower(tok) {
		case "true":
			stack = append(stack, true)
			continue
		case "false":
			stack = append(stack, false)
			continue
		case "null":
			stack = append(stack, nil)
			continue
		}

		if strings.HasPrefix(tok, "{{") {
			path := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(tok, "{{"), "}}"))
			val, err := e.resolver.Resolve(ctx, path, vars)
			if err != nil {
				return nil, err
			}
			stack = append(stack, normalizeValue(val))
			continue
		}

		if num, err := strconv.ParseFloat(tok, 64); err == nil {
			stack = append(stack, num)
			continue
		}

		// Bare identifiers resolve like {{...}} references.
		if isIdentifier(tok) {
			val, err := e.resolver.Resolve(ctx, tok, vars)
			if err != nil {
				return nil, err
			}
			stack = append(stack, normalizeValue(val))
			continue
		}

		return nil, schema.NewErrorf(schema.ErrCodeInvalidToken,
			"invalid token %q in %q", tok, expr).
			WithDetails(map[string]any{"token": tok, "expression": expr})
	}

	if len(stack) > 1 {
		return nil, schema.NewErrorf(schema.ErrCodeInvalidToken,
			"malformed expression %q: %d values left on the stack", expr, len(stack))
	}
	if len(stack) == 0 || stack[0] == nil {
		return nil, schema.NewErrorf(schema.ErrCodeNullResult, "expression %q produced no result", expr)
	}
	return stack[0], nil
}

// EvaluateBool evaluates and casts the result to bool.
func (e *Evaluator) EvaluateBool(ctx context.Context, expr string, vars map[string]any) (bool, error) {
	out, err := e.Evaluate(ctx, expr, vars)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, schema.NewErrorf(schema.ErrCodeTypeMismatch,
			"expression %q produced %T, expected bool", expr, out)
	}
	return b, nil
}

// EvaluateFloat evaluates and casts the result to float64.
func (e *Evaluator) EvaluateFloat(ctx context.Context, expr string, vars map[string]any) (float64, error) {
	out, err := e.Evaluate(ctx, expr, vars)
	if err != nil {
		return 0, err
	}
	f, nerr := toNumber(out)
	if nerr != nil {
		return 0, schema.NewErrorf(schema.ErrCodeTypeMismatch,
			"expression %q produced %T, expected number", expr, out)
	}
	return f, nil
}

// EvaluateInt evaluates and truncates the numeric result to int64.
func (e *Evaluator) EvaluateInt(ctx context.Context, expr string, vars map[string]any) (int64, error) {
	f, err := e.EvaluateFloat(ctx, expr, vars)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

// EvaluateString evaluates and casts the result to string.
func (e *Evaluator) EvaluateString(ctx context.Context, expr string, vars map[string]any) (string, error) {
	out, err := e.Evaluate(ctx, expr, vars)
	if err != nil {
		return "", err
	}
	s, ok := out.(string)
	if !ok {
		return "", schema.NewErrorf(schema.ErrCodeTypeMismatch,
			"expression %q produced %T, expected string", expr, out)
	}
	return s, nil
}

// getOrCompile returns a cached postfix sequence or compiles and caches
// a new one.
func (e *Evaluator) getOrCompile(expr string) ([]string, error) {
	e.mu.RLock()
	if rpn, ok := e.cache[expr]; ok {
		e.mu.RUnlock()
		return rpn, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Double-check after acquiring write lock.
	if rpn, ok := e.cache[expr]; ok {
		return rpn, nil
	}

	rpn, err := e.compile(expr)
	if err != nil {
		return nil, err
	}

	e.cache[expr] = rpn
	return rpn, nil
}

// compile tokenizes an expression and rewrites it to postfix order with
// the shunting-yard algorithm. Binary operators are left-associative;
// a unary operator directly before a closing parenthesis behaves like a
// prefix function call, e.g. "sqrt(4)".
func (e *Evaluator) compile(expr string) ([]string, error) {
	tokens := e.pattern.FindAllString(expr, -1)
	if len(tokens) == 0 {
		return nil, schema.NewErrorf(schema.ErrCodeEmptyExpression, "empty expression")
	}

	var out, stack []string
	top := func() string { return stack[len(stack)-1] }
	popTo := func() {
		out = append(out, top())
		stack = stack[:len(stack)-1]
	}

	for _, tok := range tokens {
		switch {
		case isUnaryTok(e.ops, tok):
			stack = append(stack, tok)

		case isBinaryTok(e.ops, tok):
			in := e.precedence(tok)
			for len(stack) > 0 && e.precedence(top()) >= in {
				popTo()
			}
			stack = append(stack, tok)

		case tok == "(":
			stack = append(stack, tok)

		case tok == ")":
			for len(stack) > 0 && top() != "(" {
				popTo()
			}
			if len(stack) == 0 {
				return nil, schema.NewErrorf(schema.ErrCodeInvalidToken,
					"unbalanced closing parenthesis in %q", expr)
			}
			stack = stack[:len(stack)-1] // discard "("
			if len(stack) > 0 && isUnaryTok(e.ops, top()) {
				popTo()
			}

		default:
			out = append(out, tok)
		}
	}

	for len(stack) > 0 {
		if top() == "(" {
			return nil, schema.NewErrorf(schema.ErrCodeInvalidToken,
				"unbalanced opening parenthesis in %q", expr)
		}
		popTo()
	}

	return out, nil
}

// precedence returns the stack precedence of a token. Parentheses yield
// to everything; unary operators outrank every binary operator.
func (e *Evaluator) precedence(tok string) int {
	if tok == "(" {
		return precParen
	}
	if op, ok := e.ops.Binary(tok); ok {
		return op.Precedence
	}
	if _, ok := e.ops.Unary(tok); ok {
		return precUnary
	}
	return precParen
}

func isBinaryTok(ops *OperatorTable, tok string) bool {
	_, ok := ops.Binary(tok)
	return ok
}

func isUnaryTok(ops *OperatorTable, tok string) bool {
	_, ok := ops.Unary(tok)
	return ok
}

// normalizeValue converts resolved numeric values to float64 so they
// compose with operator results; other values pass through.
func normalizeValue(v any) any {
	if f, err := toNumber(v); err == nil {
		return f
	}
	return v
}

// wrapOperandErr keeps structured errors intact and adds the expression
// to everything else.
func wrapOperandErr(err error, expr string) error {
	if we, ok := err.(*schema.WorkflowError); ok {
		if we.Details == nil {
			we.Details = map[string]any{}
		}
		we.Details["expression"] = expr
		return we
	}
	return schema.NewErrorf(schema.ErrCodeExecution, "evaluate %q: %s", expr, err.Error()).WithCause(err)
}
