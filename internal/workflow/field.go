// Package workflow holds the graph data model and its execution engine:
// fields, nodes, the node type registry, the live graph with its loader,
// and the per-trigger execution run.
package workflow

import (
	"context"
	"strconv"
	"strings"

	"github.com/veldt/synapse/pkg/schema"
)

// Option is a label/value pair surfaced to the graph editor for
// enum-like fields. Options carry no execution semantics.
type Option struct {
	Label string
	Value string
}

// Output is a named continuation slot on a node. NextID is assigned by
// the loader from the persisted wiring; an empty NextID terminates the
// branch.
type Output struct {
	Name        string
	Description string
	NextID      string
}

// Field is a named slot on a node. A field may be consumer-only,
// producer-only, both, or neither.
type Field struct {
	Name     string
	Consumer ConsumerSlot
	Producer *Producer
}

// ConsumerSlot is the loader-facing view of a typed consumer.
type ConsumerSlot interface {
	// Raw returns the configured raw value and whether it was set.
	Raw() (string, bool)
	// SetRaw assigns the persisted raw value.
	SetRaw(raw string)
	// Required reports whether a load without a value must fail.
	Required() bool
	// HasDefault reports whether an unset value falls back to a default.
	HasDefault() bool
	TypeName() string
	DefaultRaw() string
	Unit() string
	Options() []Option
}

// Consumer holds a literal-or-templated raw value resolved to T at
// execution time. Raw values may embed {{path}} placeholders resolved
// against the run's variable bag and the static namespaces.
type Consumer[T any] struct {
	typeName string
	raw      *string
	def      T
	defRaw   string
	hasDef   bool
	required bool
	unit     string
	options  []Option
	parse    func(string) (T, error)
	native   func(any) (T, bool)
}

// Raw returns the configured raw value and whether it was set.
func (c *Consumer[T]) Raw() (string, bool) {
	if c.raw == nil {
		return "", false
	}
	return *c.raw, true
}

func (c *Consumer[T]) SetRaw(raw string) { c.raw = &raw }
func (c *Consumer[T]) Required() bool    { return c.required }
func (c *Consumer[T]) HasDefault() bool  { return c.hasDef }
func (c *Consumer[T]) TypeName() string  { return c.typeName }
func (c *Consumer[T]) DefaultRaw() string { return c.defRaw }
func (c *Consumer[T]) Unit() string      { return c.unit }
func (c *Consumer[T]) Options() []Option { return c.options }

// WithDefault makes the consumer optional with a fallback value.
func (c *Consumer[T]) WithDefault(v T, raw string) *Consumer[T] {
	c.def = v
	c.defRaw = raw
	c.hasDef = true
	c.required = false
	return c
}

// Optional marks the consumer as not required, without a default.
func (c *Consumer[T]) Optional() *Consumer[T] {
	c.required = false
	return c
}

// WithUnit tags the consumer with an informational scale unit
// (e.g. "seconds").
func (c *Consumer[T]) WithUnit(unit string) *Consumer[T] {
	c.unit = unit
	return c
}

// WithOptions attaches editor options.
func (c *Consumer[T]) WithOptions(options ...Option) *Consumer[T] {
	c.options = options
	return c
}

// Resolve produces the typed value for one execution. An unset optional
// consumer yields its default; templated raw values interpolate against
// the run before coercion. When the raw value is a single placeholder
// the referenced value is used natively before falling back to string
// coercion.
func (c *Consumer[T]) Resolve(ctx context.Context, run *Run) (T, error) {
	var zero T

	raw, ok := c.Raw()
	if !ok {
		if c.hasDef {
			return c.def, nil
		}
		return zero, schema.NewErrorf(schema.ErrCodeRequiredFieldMissing,
			"%s consumer has no value and no default", c.typeName)
	}

	if !hasPlaceholder(raw) {
		return c.parse(raw)
	}

	val, err := run.ResolveValue(ctx, raw)
	if err != nil {
		return zero, err
	}
	if c.native != nil {
		if v, ok := c.native(val); ok {
			return v, nil
		}
	}
	if s, ok := val.(string); ok {
		return c.parse(s)
	}
	return c.parse(stringifyValue(val))
}

func hasPlaceholder(raw string) bool { return strings.Contains(raw, "{{") }

// StringConsumer builds a required string consumer.
func StringConsumer() *Consumer[string] {
	return &Consumer[string]{
		typeName: "string",
		required: true,
		parse:    func(s string) (string, error) { return s, nil },
		native: func(v any) (string, bool) {
			s, ok := v.(string)
			return s, ok
		},
	}
}

// BoolConsumer builds a required bool consumer.
func BoolConsumer() *Consumer[bool] {
	return &Consumer[bool]{
		typeName: "bool",
		required: true,
		parse: func(s string) (bool, error) {
			b, err := strconv.ParseBool(strings.TrimSpace(strings.ToLower(s)))
			if err != nil {
				return false, schema.NewErrorf(schema.ErrCodeTypeMismatch,
					"value %q is not a bool", s)
			}
			return b, nil
		},
		native: func(v any) (bool, bool) {
			b, ok := v.(bool)
			return b, ok
		},
	}
}

// FloatConsumer builds a required float64 consumer.
func FloatConsumer() *Consumer[float64] {
	return &Consumer[float64]{
		typeName: "float",
		required: true,
		parse: func(s string) (float64, error) {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return 0, schema.NewErrorf(schema.ErrCodeTypeMismatch,
					"value %q is not a number", s)
			}
			return f, nil
		},
		native: numericNative,
	}
}

// IntConsumer builds a required int64 consumer. Fractional input
// truncates toward zero.
func IntConsumer() *Consumer[int64] {
	return &Consumer[int64]{
		typeName: "int",
		required: true,
		parse: func(s string) (int64, error) {
			s = strings.TrimSpace(s)
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n, nil
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, schema.NewErrorf(schema.ErrCodeTypeMismatch,
					"value %q is not an integer", s)
			}
			return int64(f), nil
		},
		native: func(v any) (int64, bool) {
			f, ok := numericNative(v)
			if !ok {
				return 0, false
			}
			return int64(f), true
		},
	}
}

// EnumConsumer builds a required string consumer restricted to the given
// options.
func EnumConsumer(options ...Option) *Consumer[string] {
	c := &Consumer[string]{
		typeName: "enum",
		required: true,
		options:  options,
	}
	c.parse = func(s string) (string, error) {
		for _, opt := range c.options {
			if opt.Value == s {
				return s, nil
			}
		}
		values := make([]string, len(c.options))
		for i, opt := range c.options {
			values[i] = opt.Value
		}
		return "", schema.NewErrorf(schema.ErrCodeTypeMismatch,
			"value %q is not one of [%s]", s, strings.Join(values, ", "))
	}
	return c
}

// AnyConsumer builds a consumer that keeps the resolved value's native
// type. A raw value that is exactly one placeholder yields the
// referenced value unchanged; literal raw values coerce with the same
// rules as expression literals (number, then bool, else string).
func AnyConsumer() *Consumer[any] {
	return &Consumer[any]{
		typeName: "any",
		required: true,
		parse:    func(s string) (any, error) { return coerceLiteral(s), nil },
		native:   func(v any) (any, bool) { return v, true },
	}
}

// coerceLiteral applies the expression grammar's literal rules to a raw
// string value.
func coerceLiteral(s string) any {
	trimmed := strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	switch strings.ToLower(trimmed) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

func numericNative(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

func stringifyValue(v any) string {
	switch n := v.(type) {
	case nil:
		return "null"
	case string:
		return n
	case bool:
		return strconv.FormatBool(n)
	case float64:
		if n == float64(int64(n)) {
			return strconv.FormatInt(int64(n), 10)
		}
		return strconv.FormatFloat(n, 'g', -1, 64)
	default:
		return ""
	}
}

// Producer declares the variable name a node writes into the shared
// variable bag. The name may be overridden per node instance at load
// time. Collisions between producers are not rejected: writes are
// last-write-wins within one run.
type Producer struct {
	variable string
	typeName string
}

// NewProducer creates a producer writing to the given variable.
func NewProducer(variable, typeName string) *Producer {
	return &Producer{variable: variable, typeName: typeName}
}

// Variable returns the runtime variable name the producer writes.
func (p *Producer) Variable() string { return p.variable }

// TypeName returns the declared value type, informational only.
func (p *Producer) TypeName() string { return p.typeName }

func (p *Producer) setVariable(name string) { p.variable = name }

// Produce writes the value into the run's variable bag and publishes a
// "set" trace event.
func (p *Producer) Produce(ctx context.Context, run *Run, value any) {
	run.PutValue(ctx, p.variable, value)
}
