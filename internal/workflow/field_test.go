package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt/synapse/pkg/schema"
)

func fieldRun(t *testing.T, vars map[string]any) *Run {
	t.Helper()
	run := testRunner(0, nil).NewRun(nil)
	for k, v := range vars {
		run.PutValue(context.Background(), k, v)
	}
	return run
}

func TestConsumer_LiteralValue(t *testing.T) {
	c := FloatConsumer()
	c.SetRaw("2.5")

	v, err := c.Resolve(context.Background(), fieldRun(t, nil))
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)
}

func TestConsumer_DefaultWhenUnset(t *testing.T) {
	c := IntConsumer().WithDefault(30, "30")

	v, err := c.Resolve(context.Background(), fieldRun(t, nil))
	require.NoError(t, err)
	assert.Equal(t, int64(30), v)
}

func TestConsumer_RequiredWithoutValue(t *testing.T) {
	c := StringConsumer()

	_, err := c.Resolve(context.Background(), fieldRun(t, nil))
	require.Error(t, err)

	var we *schema.WorkflowError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, schema.ErrCodeRequiredFieldMissing, we.Code)
}

func TestConsumer_SinglePlaceholderKeepsNativeType(t *testing.T) {
	run := fieldRun(t, map[string]any{"count": float64(7)})

	c := FloatConsumer()
	c.SetRaw("{{count}}")

	v, err := c.Resolve(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, float64(7), v)
}

func TestConsumer_InterpolatedTemplate(t *testing.T) {
	run := fieldRun(t, map[string]any{"who": "world"})

	c := StringConsumer()
	c.SetRaw("hello {{who}}")

	v, err := c.Resolve(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, "hello world", v)
}

func TestConsumer_BoolCoercion(t *testing.T) {
	t.Run("literal", func(t *testing.T) {
		c := BoolConsumer()
		c.SetRaw("true")
		v, err := c.Resolve(context.Background(), fieldRun(t, nil))
		require.NoError(t, err)
		assert.True(t, v)
	})

	t.Run("native placeholder", func(t *testing.T) {
		run := fieldRun(t, map[string]any{"on": true})
		c := BoolConsumer()
		c.SetRaw("{{on}}")
		v, err := c.Resolve(context.Background(), run)
		require.NoError(t, err)
		assert.True(t, v)
	})

	t.Run("garbage", func(t *testing.T) {
		c := BoolConsumer()
		c.SetRaw("maybe")
		_, err := c.Resolve(context.Background(), fieldRun(t, nil))
		var we *schema.WorkflowError
		require.ErrorAs(t, err, &we)
		assert.Equal(t, schema.ErrCodeTypeMismatch, we.Code)
	})
}

func TestConsumer_IntTruncatesFractional(t *testing.T) {
	c := IntConsumer()
	c.SetRaw("3.9")

	v, err := c.Resolve(context.Background(), fieldRun(t, nil))
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}

func TestConsumer_EnumRejectsUnknownValue(t *testing.T) {
	c := EnumConsumer(
		Option{Label: "Fixed rate", Value: "FIXED_RATE"},
		Option{Label: "Fixed delay", Value: "DELAY"},
	)

	c.SetRaw("FIXED_RATE")
	v, err := c.Resolve(context.Background(), fieldRun(t, nil))
	require.NoError(t, err)
	assert.Equal(t, "FIXED_RATE", v)

	c.SetRaw("SOMETIMES")
	_, err = c.Resolve(context.Background(), fieldRun(t, nil))
	var we *schema.WorkflowError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, schema.ErrCodeTypeMismatch, we.Code)
}

func TestConsumer_AnyKeepsStructuredValue(t *testing.T) {
	payload := map[string]any{"kind": "chat", "count": float64(3)}
	run := fieldRun(t, map[string]any{"event": payload})

	c := AnyConsumer()
	c.SetRaw("{{event}}")

	v, err := c.Resolve(context.Background(), run)
	require.NoError(t, err)
	assert.Equal(t, payload, v)
}

func TestConsumer_AnyCoercesLiterals(t *testing.T) {
	resolve := func(t *testing.T, raw string) any {
		t.Helper()
		c := AnyConsumer()
		c.SetRaw(raw)
		v, err := c.Resolve(context.Background(), fieldRun(t, nil))
		require.NoError(t, err)
		return v
	}

	t.Run("number", func(t *testing.T) {
		assert.Equal(t, float64(20), resolve(t, "20"))
		assert.Equal(t, 2.5, resolve(t, " 2.5 "))
	})

	t.Run("bool", func(t *testing.T) {
		assert.Equal(t, true, resolve(t, "true"))
		assert.Equal(t, false, resolve(t, "False"))
	})

	t.Run("string", func(t *testing.T) {
		assert.Equal(t, "oops", resolve(t, "oops"))
	})
}

func TestConsumer_UnknownVariableFails(t *testing.T) {
	c := StringConsumer()
	c.SetRaw("{{ghost}}")

	_, err := c.Resolve(context.Background(), fieldRun(t, nil))
	require.Error(t, err)

	var we *schema.WorkflowError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, schema.ErrCodeFieldNotFound, we.Code)
}

func TestProducer_WritesBag(t *testing.T) {
	sink := &recordSink{}
	runner := testRunner(0, sink)
	run := runner.NewRun(nil)

	p := NewProducer("player", "any")
	p.Produce(context.Background(), run, "steve")

	v, ok := run.Value("player")
	require.True(t, ok)
	assert.Equal(t, "steve", v)
	require.Len(t, sink.ofType(schema.TraceSet), 1)
}

func TestProducer_VariableOverride(t *testing.T) {
	p := NewProducer("result", "float")
	p.setVariable("total")
	assert.Equal(t, "total", p.Variable())
}
