package expressions

import (
	"math"
	"sort"
	"sync"

	"github.com/veldt/synapse/pkg/schema"
)

// Operator precedence levels, low to high. Parentheses sit below
// everything; unary operators bind tighter than any binary operator.
const (
	precParen   = 0
	precOr      = 1
	precXor     = 2
	precAnd     = 3
	precEq      = 4
	precCompare = 5
	precShift   = 6
	precAdd     = 7
	precMul     = 8
	precUnary   = 9
)

// BinaryFunc applies a binary operator to two operands.
type BinaryFunc func(a, b any) (any, error)

// UnaryFunc applies a unary operator to one operand.
type UnaryFunc func(a any) (any, error)

// BinaryOperator is an immutable {name, symbol, function} triple. Every
// registered operator is available inside the expression grammar and is
// also surfaced as a generated node kind.
type BinaryOperator struct {
	Name       string // display name, doubles as the generated node kind name
	Symbol     string
	Precedence int
	Apply      BinaryFunc
}

// UnaryOperator is the one-operand counterpart of BinaryOperator. Unary
// operators also act as prefix functions, e.g. "sqrt(4)".
type UnaryOperator struct {
	Name   string
	Symbol string
	Apply  UnaryFunc
}

// OperatorTable holds the registered operators. Registration happens at
// engine construction; lookups are safe for concurrent use.
type OperatorTable struct {
	mu     sync.RWMutex
	binary map[string]*BinaryOperator // keyed by symbol
	unary  map[string]*UnaryOperator
}

// NewOperatorTable creates an empty OperatorTable.
func NewOperatorTable() *OperatorTable {
	return &OperatorTable{
		binary: make(map[string]*BinaryOperator),
		unary:  make(map[string]*UnaryOperator),
	}
}

// RegisterBinary adds a binary operator. Returns error on duplicate symbol.
func (t *OperatorTable) RegisterBinary(op *BinaryOperator) error {
	if op == nil || op.Symbol == "" {
		return schema.NewError(schema.ErrCodeValidation, "binary operator symbol is empty")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.binary[op.Symbol]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "binary operator %q already registered", op.Symbol)
	}
	if _, exists := t.unary[op.Symbol]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "symbol %q already registered as unary", op.Symbol)
	}

	t.binary[op.Symbol] = op
	return nil
}

// RegisterUnary adds a unary operator. Returns error on duplicate symbol.
func (t *OperatorTable) RegisterUnary(op *UnaryOperator) error {
	if op == nil || op.Symbol == "" {
		return schema.NewError(schema.ErrCodeValidation, "unary operator symbol is empty")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.unary[op.Symbol]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "unary operator %q already registered", op.Symbol)
	}
	if _, exists := t.binary[op.Symbol]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "symbol %q already registered as binary", op.Symbol)
	}

	t.unary[op.Symbol] = op
	return nil
}

// Binary looks up a binary operator by symbol.
func (t *OperatorTable) Binary(symbol string) (*BinaryOperator, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	op, ok := t.binary[symbol]
	return op, ok
}

// Unary looks up a unary operator by symbol.
func (t *OperatorTable) Unary(symbol string) (*UnaryOperator, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	op, ok := t.unary[symbol]
	return op, ok
}

// Binaries returns all binary operators sorted by display name.
func (t *OperatorTable) Binaries() []*BinaryOperator {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ops := make([]*BinaryOperator, 0, len(t.binary))
	for _, op := range t.binary {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Name < ops[j].Name })
	return ops
}

// Unaries returns all unary operators sorted by display name.
func (t *OperatorTable) Unaries() []*UnaryOperator {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ops := make([]*UnaryOperator, 0, len(t.unary))
	for _, op := range t.unary {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Name < ops[j].Name })
	return ops
}

// symbols returns every registered symbol, longest first, so the
// tokenizer matches multi-character symbols before their prefixes.
func (t *OperatorTable) symbols() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	syms := make([]string, 0, len(t.binary)+len(t.unary))
	for s := range t.binary {
		syms = append(syms, s)
	}
	for s := range t.unary {
		syms = append(syms, s)
	}
	sort.Slice(syms, func(i, j int) bool {
		if len(syms[i]) != len(syms[j]) {
			return len(syms[i]) > len(syms[j])
		}
		return syms[i] < syms[j]
	})
	return syms
}

// RegisterBuiltins installs the standard operator set.
func RegisterBuiltins(t *OperatorTable) error {
	binaries := []*BinaryOperator{
		{Name: "Or", Symbol: "or", Precedence: precOr, Apply: bitwiseOp(func(a, b int64) int64 { return a | b })},
		{Name: "Xor", Symbol: "xor", Precedence: precXor, Apply: bitwiseOp(func(a, b int64) int64 { return a ^ b })},
		{Name: "And", Symbol: "and", Precedence: precAnd, Apply: bitwiseOp(func(a, b int64) int64 { return a & b })},
		{Name: "Equal", Symbol: "==", Precedence: precEq, Apply: func(a, b any) (any, error) { return looseEqual(a, b), nil }},
		{Name: "NotEqual", Symbol: "!=", Precedence: precEq, Apply: func(a, b any) (any, error) { return !looseEqual(a, b), nil }},
		{Name: "Less", Symbol: "<", Precedence: precCompare, Apply: compareOp(func(a, b float64) bool { return a < b })},
		{Name: "Greater", Symbol: ">", Precedence: precCompare, Apply: compareOp(func(a, b float64) bool { return a > b })},
		{Name: "LessOrEqual", Symbol: "<=", Precedence: precCompare, Apply: compareOp(func(a, b float64) bool { return a <= b })},
		{Name: "GreaterOrEqual", Symbol: ">=", Precedence: precCompare, Apply: compareOp(func(a, b float64) bool { return a >= b })},
		{Name: "ShiftLeft", Symbol: "<<", Precedence: precShift, Apply: bitwiseOp(func(a, b int64) int64 { return a << uint64(b) })},
		{Name: "ShiftRight", Symbol: ">>", Precedence: precShift, Apply: bitwiseOp(func(a, b int64) int64 { return a >> uint64(b) })},
		{Name: "Add", Symbol: "+", Precedence: precAdd, Apply: arithmeticOp(func(a, b float64) float64 { return a + b })},
		{Name: "Subtract", Symbol: "-", Precedence: precAdd, Apply: arithmeticOp(func(a, b float64) float64 { return a - b })},
		{Name: "Multiply", Symbol: "*", Precedence: precMul, Apply: arithmeticOp(func(a, b float64) float64 { return a * b })},
		{Name: "Divide", Symbol: "/", Precedence: precMul, Apply: arithmeticOp(func(a, b float64) float64 { return a / b })},
		{Name: "Modulo", Symbol: "%", Precedence: precMul, Apply: arithmeticOp(math.Mod)},
		{Name: "IntDivide", Symbol: "idiv", Precedence: precMul, Apply: arithmeticOp(func(a, b float64) float64 { return math.Floor(a / b) })},
	}

	unaries := []*UnaryOperator{
		{Name: "Flip", Symbol: "flip", Apply: unaryBitwise(func(a int64) int64 { return ^a })},
		{Name: "Not", Symbol: "not", Apply: applyNot},
		{Name: "Sqrt", Symbol: "sqrt", Apply: unaryMath(math.Sqrt)},
		{Name: "Square", Symbol: "square", Apply: unaryMath(func(a float64) float64 { return a * a })},
		{Name: "Abs", Symbol: "abs", Apply: unaryMath(math.Abs)},
		{Name: "Floor", Symbol: "floor", Apply: unaryMath(math.Floor)},
		{Name: "Ceil", Symbol: "ceil", Apply: unaryMath(math.Ceil)},
		{Name: "Round", Symbol: "round", Apply: unaryMath(math.Round)},
	}

	for _, op := range binaries {
		if err := t.RegisterBinary(op); err != nil {
			return err
		}
	}
	for _, op := range unaries {
		if err := t.RegisterUnary(op); err != nil {
			return err
		}
	}
	return nil
}

// arithmeticOp wraps a float64 function as a numeric binary operator.
func arithmeticOp(fn func(a, b float64) float64) BinaryFunc {
	return func(a, b any) (any, error) {
		fa, err := toNumber(a)
		if err != nil {
			return nil, err
		}
		fb, err := toNumber(b)
		if err != nil {
			return nil, err
		}
		return fn(fa, fb), nil
	}
}

// compareOp wraps a float64 predicate as a numeric comparison operator.
func compareOp(fn func(a, b float64) bool) BinaryFunc {
	return func(a, b any) (any, error) {
		fa, err := toNumber(a)
		if err != nil {
			return nil, err
		}
		fb, err := toNumber(b)
		if err != nil {
			return nil, err
		}
		return fn(fa, fb), nil
	}
}

// bitwiseOp truncates both operands to integers, applies the bit
// operation, and converts back to float64.
func bitwiseOp(fn func(a, b int64) int64) BinaryFunc {
	return func(a, b any) (any, error) {
		fa, err := toNumber(a)
		if err != nil {
			return nil, err
		}
		fb, err := toNumber(b)
		if err != nil {
			return nil, err
		}
		return float64(fn(int64(fa), int64(fb))), nil
	}
}

func unaryMath(fn func(a float64) float64) UnaryFunc {
	return func(a any) (any, error) {
		fa, err := toNumber(a)
		if err != nil {
			return nil, err
		}
		return fn(fa), nil
	}
}

func unaryBitwise(fn func(a int64) int64) UnaryFunc {
	return func(a any) (any, error) {
		fa, err := toNumber(a)
		if err != nil {
			return nil, err
		}
		return float64(fn(int64(fa))), nil
	}
}

func applyNot(a any) (any, error) {
	b, ok := a.(bool)
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeTypeMismatch, "operator not requires a boolean operand, got %T", a)
	}
	return !b, nil
}

// toNumber normalizes a numeric-like operand to float64.
func toNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, schema.NewErrorf(schema.ErrCodeTypeMismatch, "operand %v (%T) is not numeric", v, v)
	}
}

// looseEqual compares any two operands. Numeric operands compare by
// value regardless of their Go type; other comparable scalars compare
// directly, and anything else is never equal.
func looseEqual(a, b any) bool {
	fa, errA := toNumber(a)
	fb, errB := toNumber(b)
	if errA == nil && errB == nil {
		return fa == fb
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return false
	}
}
