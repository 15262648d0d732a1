// Package registry maps opcodes to command handlers.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Handler executes a command and produces the response payload.
// The input payload belongs to the handler and may be reused for the
// response.
type Handler interface {
	Handle(ctx context.Context, payload []byte) ([]byte, error)
}

// HandlerFunc is the func form of Handler.
type HandlerFunc func(ctx context.Context, payload []byte) ([]byte, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, payload []byte) ([]byte, error) {
	return f(ctx, payload)
}

var (
	// ErrFrozen indicates the registry no longer accepts registrations.
	ErrFrozen = errors.New("registry frozen")
	// ErrEmptySelector indicates a sub-dispatch without selector byte.
	ErrEmptySelector = errors.New("missing selector byte")
)

// DuplicateError reports an opcode registered twice.
type DuplicateError struct {
	Registry string
	Opcode   byte
}

// Error implements error.
func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s: opcode %02x already registered", e.Registry, e.Opcode)
}

// UnknownOpcodeError reports an opcode without handler.
type UnknownOpcodeError struct {
	Registry string
	Opcode   byte
}

// Error implements error.
func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("%s: unknown opcode %02x", e.Registry, e.Opcode)
}

// Fault is returned by handlers to reject a command with a code that is
// carried back to the master in the NACK payload.
type Fault struct {
	Code byte
}

// Error implements error.
func (f *Fault) Error() string {
	return fmt.Sprintf("fault %d", f.Code)
}

// Registry maps opcodes to handlers. Registrations happen during bring-up;
// after Freeze the registry is read-only until Reset.
type Registry struct {
	name     string
	lock     sync.RWMutex
	handlers map[byte]Handler
	frozen   bool
}

// New creates a named Registry. The name only appears in errors and logs.
func New(name string) *Registry {
	return &Registry{name: name, handlers: make(map[byte]Handler)}
}

// Name returns the registry name.
func (r *Registry) Name() string {
	return r.name
}

// Register adds a handler for opcode.
func (r *Registry) Register(opcode byte, h Handler) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.frozen {
		return ErrFrozen
	}
	if _, exists := r.handlers[opcode]; exists {
		return &DuplicateError{Registry: r.name, Opcode: opcode}
	}
	r.handlers[opcode] = h
	return nil
}

// MustRegister is Register panicking on error, for module bring-up code.
func (r *Registry) MustRegister(opcode byte, h Handler) *Registry {
	if err := r.Register(opcode, h); err != nil {
		panic(err)
	}
	return r
}

// MustRegisterFunc registers a HandlerFunc.
func (r *Registry) MustRegisterFunc(opcode byte, fn func(context.Context, []byte) ([]byte, error)) *Registry {
	return r.MustRegister(opcode, HandlerFunc(fn))
}

// Freeze stops further registrations.
func (r *Registry) Freeze() {
	r.lock.Lock()
	r.frozen = true
	r.lock.Unlock()
}

// Reset removes all registrations and re-opens the registry.
func (r *Registry) Reset() {
	r.lock.Lock()
	r.handlers = make(map[byte]Handler)
	r.frozen = false
	r.lock.Unlock()
}

// Lookup finds the handler for opcode.
func (r *Registry) Lookup(opcode byte) (Handler, bool) {
	r.lock.RLock()
	h, ok := r.handlers[opcode]
	r.lock.RUnlock()
	return h, ok
}

// Opcodes lists registered opcodes in ascending order.
func (r *Registry) Opcodes() []byte {
	r.lock.RLock()
	ops := make([]byte, 0, len(r.handlers))
	for op := range r.handlers {
		ops = append(ops, op)
	}
	r.lock.RUnlock()
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// Dispatch invokes the handler registered for opcode.
func (r *Registry) Dispatch(ctx context.Context, opcode byte, payload []byte) ([]byte, error) {
	h, ok := r.Lookup(opcode)
	if !ok {
		return nil, &UnknownOpcodeError{Registry: r.name, Opcode: opcode}
	}
	return h.Handle(ctx, payload)
}

// Handle implements Handler by selecting the handler with the first
// payload byte and passing it the rest. This nests a registry of
// sub-commands under one opcode.
func (r *Registry) Handle(ctx context.Context, payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrEmptySelector
	}
	return r.Dispatch(ctx, payload[0], payload[1:])
}
