package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt/synapse/pkg/schema"
)

func TestTypeRegistry_RegisterAndGet(t *testing.T) {
	reg := NewTypeRegistry()
	require.NoError(t, reg.Register(haltType(nil)))

	nt, err := reg.Get("Halt")
	require.NoError(t, err)
	assert.Equal(t, "Halt", nt.Name)
	assert.True(t, reg.Has("Halt"))
	assert.Equal(t, 1, reg.Count())
}

func TestTypeRegistry_DuplicateName(t *testing.T) {
	reg := NewTypeRegistry()
	require.NoError(t, reg.Register(haltType(nil)))

	err := reg.Register(haltType(nil))
	require.Error(t, err)

	var we *schema.WorkflowError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, schema.ErrCodeConflict, we.Code)
}

func TestTypeRegistry_UnknownType(t *testing.T) {
	reg := NewTypeRegistry()

	_, err := reg.Get("Ghost")
	require.Error(t, err)

	var we *schema.WorkflowError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, schema.ErrCodeNodeTypeNotFound, we.Code)
}

func TestTypeRegistry_RejectsInvalidTypes(t *testing.T) {
	reg := NewTypeRegistry()

	assert.Error(t, reg.Register(nil))
	assert.Error(t, reg.Register(&NodeType{Name: ""}))
	assert.Error(t, reg.Register(&NodeType{Name: "NoFactory"}))
}

func TestTypeRegistry_DescribeCatalog(t *testing.T) {
	reg := NewTypeRegistry()
	require.NoError(t, reg.Register(labelType()))
	require.NoError(t, reg.Register(haltType(nil)))

	infos := reg.Describe()
	require.Len(t, infos, 2)

	// sorted by name
	assert.Equal(t, "Halt", infos[0].Name)
	assert.Equal(t, "Label", infos[1].Name)

	label := infos[1]
	assert.Equal(t, "test", label.Group)
	assert.Equal(t, 1, label.Inputs)
	require.Len(t, label.Fields, 2)

	msg := label.Fields[0]
	assert.Equal(t, "message", msg.Name)
	assert.Equal(t, "string", msg.Type)
	assert.True(t, msg.Required)

	result := label.Fields[1]
	assert.Equal(t, "result", result.Name)
	assert.Equal(t, "label", result.Variable)

	require.Len(t, label.Outputs, 1)
	assert.Equal(t, "Next", label.Outputs[0].Name)
}
