package registry

import (
	"fmt"
	"sort"

	"github.com/closeloop/actionpipe/handler"
	"github.com/closeloop/actionpipe/logger"
	"github.com/closeloop/actionpipe/model"
	"go.uber.org/zap"
)

type NotFoundError struct {
	Type model.ActionType
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("no handler registered for action type %s", e.Type)
}

func IsNotFound(err error) bool {
	_, ok := err.(NotFoundError)
	return ok
}

// Registry maps action types to their handlers. It is populated once from an
// explicit registration list at process start and is read-only afterwards, so
// lookups need no locking.
type Registry struct {
	handlers map[model.ActionType]handler.Handler
}

func New() *Registry {
	return &Registry{
		handlers: make(map[model.ActionType]handler.Handler),
	}
}

// Register adds a handler. A duplicate type is a configuration error; use
// Override when replacing a handler is intended.
func (r *Registry) Register(h handler.Handler) error {
	if _, exists := r.handlers[h.Type()]; exists {
		logger.Error("duplicate handler registration", zap.String("type", string(h.Type())))
		return fmt.Errorf("handler for action type %s already registered", h.Type())
	}
	r.handlers[h.Type()] = h
	return nil
}

// Override replaces any existing handler for the type. Last registration
// wins.
func (r *Registry) Override(h handler.Handler) {
	if _, exists := r.handlers[h.Type()]; exists {
		logger.Info("overriding handler registration", zap.String("type", string(h.Type())))
	}
	r.handlers[h.Type()] = h
}

func (r *Registry) Get(t model.ActionType) (handler.Handler, error) {
	h, ok := r.handlers[t]
	if !ok {
		return nil, NotFoundError{Type: t}
	}
	return h, nil
}

// List returns all handlers except those in the exclusion set, sorted by
// type name.
func (r *Registry) List(excluding map[model.ActionType]bool) []handler.Handler {
	handlers := make([]handler.Handler, 0, len(r.handlers))
	for t, h := range r.handlers {
		if excluding[t] {
			continue
		}
		handlers = append(handlers, h)
	}
	sort.Slice(handlers, func(i, j int) bool {
		return handlers[i].Type() < handlers[j].Type()
	})
	return handlers
}

func (r *Registry) Types() []model.ActionType {
	types := make([]model.ActionType, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
