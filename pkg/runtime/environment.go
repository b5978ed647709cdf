package runtime

import "sort"

// binding pairs a declared type with the current value. initialized
// flips on the first write; reading before that is an error, never a
// defaulted zero.
type binding struct {
	declared    Kind
	value       Value
	initialized bool
}

// Environment is one scope frame in the lexical chain. A frame is
// pushed on function entry and on each block or loop iteration, and
// popped (dropped) on exit.
type Environment struct {
	bindings map[string]*binding
	parent   *Environment
}

// NewEnvironment creates a new frame, optionally nested under a parent.
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{
		bindings: make(map[string]*binding),
		parent:   parent,
	}
}

// Parent exposes the lexical parent (nil at a call-frame root).
func (e *Environment) Parent() *Environment {
	return e.parent
}

// Declare binds a fresh name in this frame. value may be nil for a
// declaration without an initializer. Shadowing an outer frame's name
// is allowed; colliding within this frame is not.
func (e *Environment) Declare(name string, declared Kind, value Value) error {
	if _, ok := e.bindings[name]; ok {
		return NewError(DuplicateDeclaration, "variable '%s' is already declared in this scope", name)
	}
	b := &binding{declared: declared}
	if value != nil {
		if value.Kind() != declared {
			return NewError(TypeMismatch, "cannot initialize '%s' (%s) with a %s value", name, declared, value.Kind())
		}
		b.value = value
		b.initialized = true
	}
	e.bindings[name] = b
	return nil
}

// Assign updates the binding in the nearest frame where the name
// appears, enforcing the declared type.
func (e *Environment) Assign(name string, value Value) error {
	if b, ok := e.bindings[name]; ok {
		if value == nil || value.Kind() != b.declared {
			got := "no value"
			if value != nil {
				got = value.Kind().String()
			}
			return NewError(TypeMismatch, "cannot assign %s to '%s' (%s)", got, name, b.declared)
		}
		b.value = value
		b.initialized = true
		return nil
	}
	if e.parent != nil {
		return e.parent.Assign(name, value)
	}
	return NewError(UndeclaredVariable, "variable '%s' is not declared", name)
}

// Get retrieves a binding, searching outward through the scope chain.
func (e *Environment) Get(name string) (Value, error) {
	if b, ok := e.bindings[name]; ok {
		if !b.initialized {
			return nil, NewError(UninitializedVariable, "variable '%s' is read before it is assigned", name)
		}
		return b.value, nil
	}
	if e.parent != nil {
		return e.parent.Get(name)
	}
	return nil, NewError(UndeclaredVariable, "variable '%s' is not declared", name)
}

// Keys returns this frame's names in sorted order (useful for
// determinism in tests).
func (e *Environment) Keys() []string {
	keys := make([]string, 0, len(e.bindings))
	for k := range e.bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Extend creates a child frame of the current one.
func (e *Environment) Extend() *Environment {
	return NewEnvironment(e)
}
