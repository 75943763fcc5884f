package expressions

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/veldt/synapse/pkg/schema"
)

// Accessor produces the value behind one registered namespace path.
type Accessor func(ctx context.Context) (any, error)

// Member is the capability interface for host-exposed values that allow
// nested member access from expression paths. Returning false marks the
// member as absent.
type Member interface {
	Member(name string) (any, bool)
}

// NamespaceTable is the closed set of static paths the host exposes to
// expressions. The first path segment selects a namespace (uppercase by
// convention, e.g. "Server"); the rest selects a registered accessor.
// Registration happens at engine construction; lookups are safe for
// concurrent use.
type NamespaceTable struct {
	mu     sync.RWMutex
	spaces map[string]map[string]Accessor
}

// NewNamespaceTable creates an empty NamespaceTable.
func NewNamespaceTable() *NamespaceTable {
	return &NamespaceTable{spaces: make(map[string]map[string]Accessor)}
}

// Register adds a namespace with its accessor paths. The namespace name
// must start with an uppercase letter so the resolver can distinguish it
// from run variables. Returns error on duplicate namespace.
func (t *NamespaceTable) Register(space string, paths map[string]Accessor) error {
	if space == "" || !startsUpper(space) {
		return schema.NewErrorf(schema.ErrCodeValidation, "namespace %q must start with an uppercase letter", space)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.spaces[space]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "namespace %q already registered", space)
	}

	cp := make(map[string]Accessor, len(paths))
	for p, fn := range paths {
		cp[p] = fn
	}
	t.spaces[space] = cp
	return nil
}

// Resolve looks up a registered accessor and invokes it.
func (t *NamespaceTable) Resolve(ctx context.Context, space, path string) (any, error) {
	t.mu.RLock()
	paths, ok := t.spaces[space]
	var fn Accessor
	if ok {
		fn = paths[path]
	}
	t.mu.RUnlock()

	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeInvalidClassRef,
			"unknown namespace %q; available: [%s]", space, strings.Join(t.Spaces(), ", ")).
			WithDetails(map[string]any{"namespace": space, "available_namespaces": t.Spaces()})
	}
	if fn == nil {
		available := t.Paths(space)
		return nil, schema.NewErrorf(schema.ErrCodeFieldNotFound,
			"path %q not found in namespace %q; available: [%s]", path, space, strings.Join(available, ", ")).
			WithDetails(map[string]any{"namespace": space, "path": path, "available_paths": available})
	}
	return fn(ctx)
}

// Spaces returns the registered namespace names, sorted.
func (t *NamespaceTable) Spaces() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.spaces))
	for name := range t.spaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Paths returns the registered paths of one namespace, sorted. Used by
// tooling to enumerate what expressions may reference.
func (t *NamespaceTable) Paths(space string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	paths := make([]string, 0, len(t.spaces[space]))
	for p := range t.spaces[space] {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Resolver resolves dotted expression paths. Paths whose first segment
// starts with an uppercase letter go to the static namespace table;
// everything else is looked up in the run's variable bag, with remaining
// segments resolved as nested member access.
type Resolver struct {
	spaces *NamespaceTable
}

// NewResolver creates a Resolver backed by the given namespace table.
func NewResolver(spaces *NamespaceTable) *Resolver {
	return &Resolver{spaces: spaces}
}

// Resolve evaluates one dotted path against the variable bag.
func (r *Resolver) Resolve(ctx context.Context, path string, vars map[string]any) (any, error) {
	if path == "" {
		return nil, schema.NewError(schema.ErrCodeInvalidToken, "empty variable reference: {{ }}")
	}

	first, rest, _ := strings.Cut(path, ".")

	if startsUpper(first) {
		return r.spaces.Resolve(ctx, first, rest)
	}

	val, ok := vars[first]
	if !ok {
		available := varNames(vars)
		return nil, schema.NewErrorf(schema.ErrCodeFieldNotFound,
			"variable %q not found in {{%s}}; available: [%s]", first, path, strings.Join(available, ", ")).
			WithDetails(map[string]any{"path": path, "available_variables": available})
	}
	if rest == "" {
		return val, nil
	}
	return traversePath(val, rest, path)
}

// traversePath navigates nested maps and Member values using a
// dot-delimited path.
func traversePath(root any, path, full string) (any, error) {
	current := root
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			return nil, schema.NewErrorf(schema.ErrCodeInvalidToken, "empty segment in path {{%s}}", full)
		}

		switch v := current.(type) {
		case map[string]any:
			val, ok := v[seg]
			if !ok {
				available := varNames(v)
				return nil, schema.NewErrorf(schema.ErrCodeFieldNotFound,
					"field %q not found in {{%s}}; available: [%s]", seg, full, strings.Join(available, ", ")).
					WithDetails(map[string]any{"path": full, "available_fields": available})
			}
			current = val
		case Member:
			val, ok := v.Member(seg)
			if !ok {
				return nil, schema.NewErrorf(schema.ErrCodeFieldNotFound,
					"member %q not found in {{%s}}", seg, full).
					WithDetails(map[string]any{"path": full, "member": seg})
			}
			current = val
		default:
			return nil, schema.NewErrorf(schema.ErrCodeFieldNotFound,
				"cannot traverse into %q in {{%s}} (type: %T)", seg, full, current).
				WithDetails(map[string]any{"path": full})
		}
	}
	return current, nil
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

func varNames(m map[string]any) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
