// Package hooks provides a typed action/filter bus.
//
// Producers and consumers never hold references to each other; they agree on
// a declared event value instead. Actions are fired for side effects only,
// filters thread a value through every registered handler.
//
// # Declaring events
//
//	var CodeReceived = hooks.NewAction[CodeArgs]("process_request_code")
//	var AuthLink = hooks.NewFilter[string, LinkArgs]("is_auth_link")
//
// # Registering and dispatching
//
//	bus := hooks.New()
//	hooks.On(bus, CodeReceived, handleCode)
//	hooks.OnFilter(bus, AuthLink, renderLink, hooks.WithPriority(5))
//
//	err := hooks.Emit(ctx, bus, CodeReceived, CodeArgs{Code: code})
//	markup, err := hooks.Apply(ctx, bus, AuthLink, "Authorize", LinkArgs{Element: "a"})
//
// Handlers run synchronously on the caller's goroutine, ordered by ascending
// priority and then by registration order. The first handler error stops
// dispatch and is returned to the caller.
package hooks

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// DefaultPriority is used when a handler is registered without WithPriority.
const DefaultPriority = 10

// ActionFunc handles an action event.
type ActionFunc[A any] func(ctx context.Context, args A) error

// FilterFunc receives the current value and returns the next one.
type FilterFunc[V, A any] func(ctx context.Context, value V, args A) (V, error)

// Action is a declared fire-and-forget event carrying arguments of type A.
type Action[A any] struct {
	name string
}

// NewAction declares an action event.
func NewAction[A any](name string) Action[A] {
	return Action[A]{name: name}
}

// Name returns the event name.
func (a Action[A]) Name() string {
	return a.name
}

// Filter is a declared value pipeline over V with extra arguments of type A.
type Filter[V, A any] struct {
	name string
}

// NewFilter declares a filter event.
func NewFilter[V, A any](name string) Filter[V, A] {
	return Filter[V, A]{name: name}
}

// Name returns the event name.
func (f Filter[V, A]) Name() string {
	return f.name
}

// Option configures a single registration.
type Option func(*registration)

// WithPriority sets the handler priority. Lower values run first.
func WithPriority(priority int) Option {
	return func(r *registration) {
		r.priority = priority
	}
}

type registration struct {
	priority int
	seq      uint64
	handler  any
}

// Bus holds the handlers registered for every event name.
type Bus struct {
	mu       sync.RWMutex
	seq      uint64
	handlers map[string][]registration
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		handlers: make(map[string][]registration),
	}
}

// On registers an action handler. Registering the same handler twice
// results in two invocations.
func On[A any](b *Bus, action Action[A], fn ActionFunc[A], opts ...Option) {
	b.register(action.name, fn, opts)
}

// OnFilter registers a filter handler.
func OnFilter[V, A any](b *Bus, filter Filter[V, A], fn FilterFunc[V, A], opts ...Option) {
	b.register(filter.name, fn, opts)
}

// Emit invokes every handler registered for the action, in order.
// With no handlers it does nothing.
func Emit[A any](ctx context.Context, b *Bus, action Action[A], args A) error {
	for _, reg := range b.snapshot(action.name) {
		fn, ok := reg.handler.(ActionFunc[A])
		if !ok {
			return fmt.Errorf("hooks: handler for action %q has type %T", action.name, reg.handler)
		}

		if err := fn(ctx, args); err != nil {
			return fmt.Errorf("action %q: %w", action.name, err)
		}
	}

	return nil
}

// Apply threads value through every handler registered for the filter and
// returns the final value. With no handlers value is returned unchanged.
func Apply[V, A any](ctx context.Context, b *Bus, filter Filter[V, A], value V, args A) (V, error) {
	for _, reg := range b.snapshot(filter.name) {
		fn, ok := reg.handler.(FilterFunc[V, A])
		if !ok {
			return value, fmt.Errorf("hooks: handler for filter %q has type %T", filter.name, reg.handler)
		}

		next, err := fn(ctx, value, args)
		if err != nil {
			return value, fmt.Errorf("filter %q: %w", filter.name, err)
		}

		value = next
	}

	return value, nil
}

// Count returns the number of handlers registered under name.
func (b *Bus) Count(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.handlers[name])
}

// Names returns the sorted names of every event with at least one handler.
func (b *Bus) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.handlers))
	for name := range b.handlers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func (b *Bus) register(name string, handler any, opts []Option) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	reg := registration{
		priority: DefaultPriority,
		seq:      b.seq,
		handler:  handler,
	}
	for _, opt := range opts {
		opt(&reg)
	}

	// Keep the slice ordered so dispatch never sorts.
	regs := b.handlers[name]
	idx := sort.Search(len(regs), func(i int) bool {
		return regs[i].priority > reg.priority
	})

	regs = append(regs, registration{})
	copy(regs[idx+1:], regs[idx:])
	regs[idx] = reg
	b.handlers[name] = regs
}

// snapshot copies the registrations so handlers may register new hooks
// while an event is being dispatched.
func (b *Bus) snapshot(name string) []registration {
	b.mu.RLock()
	defer b.mu.RUnlock()

	regs := b.handlers[name]
	if len(regs) == 0 {
		return nil
	}

	out := make([]registration, len(regs))
	copy(out, regs)

	return out
}
