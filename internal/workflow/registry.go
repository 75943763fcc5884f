package workflow

import (
	"sort"
	"sync"

	"github.com/veldt/synapse/pkg/schema"
)

// Factory constructs a fresh, unwired node instance.
type Factory func() Node

// NodeType is one catalog entry: a node kind by name with its
// constructor.
type NodeType struct {
	Name  string
	Group string
	New   Factory
}

// TypeRegistry is the closed catalog of node kinds, keyed by type name.
// Registration happens while the engine is assembled; lookups are safe
// for concurrent use.
type TypeRegistry struct {
	mu    sync.RWMutex
	types map[string]*NodeType
}

// NewTypeRegistry creates an empty TypeRegistry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[string]*NodeType)}
}

// Register adds a node type. Returns error on duplicate name.
func (r *TypeRegistry) Register(nt *NodeType) error {
	if nt == nil || nt.Name == "" {
		return schema.NewError(schema.ErrCodeValidation, "node type name is empty")
	}
	if nt.New == nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "node type %q has no factory", nt.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[nt.Name]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "node type %q already registered", nt.Name)
	}

	r.types[nt.Name] = nt
	return nil
}

// Get retrieves a node type by name.
func (r *TypeRegistry) Get(name string) (*NodeType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	nt, ok := r.types[name]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNodeTypeNotFound, "node type %q not registered", name)
	}
	return nt, nil
}

// Has checks if a node type is registered.
func (r *TypeRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[name]
	return ok
}

// Count returns the number of registered node types.
func (r *TypeRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// Describe returns the catalog as editor-facing type descriptors,
// sorted by name. Each descriptor is read off a throwaway prototype
// instance.
func (r *TypeRegistry) Describe() []schema.NodeTypeInfo {
	r.mu.RLock()
	types := make([]*NodeType, 0, len(r.types))
	for _, nt := range r.types {
		types = append(types, nt)
	}
	r.mu.RUnlock()

	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })

	infos := make([]schema.NodeTypeInfo, 0, len(types))
	for _, nt := range types {
		infos = append(infos, describe(nt))
	}
	return infos
}

func describe(nt *NodeType) schema.NodeTypeInfo {
	proto := nt.New()
	info := schema.NodeTypeInfo{Name: nt.Name, Group: nt.Group}

	if ic, ok := proto.(interface{ InputCount() int }); ok {
		info.Inputs = ic.InputCount()
	}

	for _, f := range proto.Fields() {
		fi := schema.FieldInfo{Name: f.Name}
		if f.Consumer != nil {
			fi.Type = f.Consumer.TypeName()
			fi.Required = f.Consumer.Required()
			fi.Default = f.Consumer.DefaultRaw()
			fi.Unit = f.Consumer.Unit()
			for _, opt := range f.Consumer.Options() {
				fi.Options = append(fi.Options, schema.OptionInfo{Label: opt.Label, Value: opt.Value})
			}
		}
		if f.Producer != nil {
			fi.Variable = f.Producer.Variable()
		}
		info.Fields = append(info.Fields, fi)
	}

	for _, o := range proto.Outputs() {
		info.Outputs = append(info.Outputs, schema.OutputInfo{Name: o.Name, Description: o.Description})
	}

	return info
}
