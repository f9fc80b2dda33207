// Package errors routes task failures raised on the loop goroutine to pluggable handlers
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/jzx17/goexecutor/pkg/types"
)

// ErrorHandler defines the task failure handling interface
type ErrorHandler interface {
	// HandleError handles the failure, returns the error to escalate or nil if handled
	HandleError(ctx context.Context, errCtx *ErrorContext) error

	// Name returns the name of the error handler
	Name() string

	// CanHandle determines if it can handle specific type of error
	CanHandle(err error) bool
}

// ErrorContext describes a task failure
type ErrorContext struct {
	// Error that occurred
	Error error

	// Executor is the name of the executor that ran the task
	Executor string

	// TaskID is the failed task's ID, empty for anonymous tasks
	TaskID string

	// Panicked reports whether the failure was a recovered panic
	Panicked bool

	// Timestamp when the error occurred
	Timestamp time.Time

	// Metadata contains additional metadata information
	Metadata map[string]interface{}
}

// NewErrorContext creates an error context, lifting task details out of a *types.TaskError
func NewErrorContext(err error, executor string, now time.Time) *ErrorContext {
	errCtx := &ErrorContext{
		Error:     err,
		Executor:  executor,
		Timestamp: now,
		Metadata:  make(map[string]interface{}),
	}

	var taskErr *types.TaskError
	if stderrors.As(err, &taskErr) {
		errCtx.TaskID = taskErr.TaskID
		errCtx.Panicked = taskErr.Panicked
		for k, v := range taskErr.Context {
			errCtx.Metadata[k] = v
		}
	}
	return errCtx
}

// LogHandler logs every failure and reports it handled
type LogHandler struct {
	logger *logiface.Logger[logiface.Event]
}

// NewLogHandler creates a logging handler, a nil logger discards
func NewLogHandler(logger *logiface.Logger[logiface.Event]) *LogHandler {
	return &LogHandler{logger: logger}
}

// HandleError implements the ErrorHandler interface
func (h *LogHandler) HandleError(ctx context.Context, errCtx *ErrorContext) error {
	b := h.logger.Err().
		Str("executor", errCtx.Executor).
		Str("task_id", errCtx.TaskID).
		Bool("panicked", errCtx.Panicked).
		Err(errCtx.Error)
	if stack, ok := errCtx.Metadata["stack_trace"].(string); ok {
		b = b.Str("stack_trace", stack)
	}
	b.Log("task failed")
	return nil
}

// Name returns the handler name
func (h *LogHandler) Name() string {
	return "Log"
}

// CanHandle reports true, every failure can be logged
func (h *LogHandler) CanHandle(err error) bool {
	return true
}

// IgnoreHandler drops failures matching its targets, or every failure when it has none
type IgnoreHandler struct {
	mu      sync.RWMutex
	targets []error
}

// NewIgnoreHandler creates an ignore handler for the given targets
func NewIgnoreHandler(targets ...error) *IgnoreHandler {
	h := &IgnoreHandler{}
	for _, target := range targets {
		h.AddTarget(target)
	}
	return h
}

// HandleError implements the ErrorHandler interface
func (h *IgnoreHandler) HandleError(ctx context.Context, errCtx *ErrorContext) error {
	if !h.CanHandle(errCtx.Error) {
		return errCtx.Error
	}
	return nil
}

// Name returns the handler name
func (h *IgnoreHandler) Name() string {
	return "Ignore"
}

// CanHandle reports whether err matches one of the targets
func (h *IgnoreHandler) CanHandle(err error) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.targets) == 0 {
		return true
	}
	for _, target := range h.targets {
		if stderrors.Is(err, target) {
			return true
		}
	}
	return false
}

// AddTarget adds an error to ignore
func (h *IgnoreHandler) AddTarget(target error) {
	if target == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.targets = append(h.targets, target)
}

// FuncHandler adapts a types.ErrorHandler callback
type FuncHandler struct {
	name string
	fn   types.ErrorHandler
}

// NewFuncHandler creates a handler named "Func" delegating to fn
func NewFuncHandler(fn types.ErrorHandler) *FuncHandler {
	return NewNamedFuncHandler("Func", fn)
}

// NewNamedFuncHandler creates a handler delegating to fn, registered under name
func NewNamedFuncHandler(name string, fn types.ErrorHandler) *FuncHandler {
	return &FuncHandler{name: name, fn: fn}
}

// HandleError implements the ErrorHandler interface
func (h *FuncHandler) HandleError(ctx context.Context, errCtx *ErrorContext) error {
	if h.fn == nil {
		return errCtx.Error
	}
	return h.fn(errCtx.Error)
}

// Name returns the handler name
func (h *FuncHandler) Name() string {
	return h.name
}

// CanHandle reports true
func (h *FuncHandler) CanHandle(err error) bool {
	return true
}

type binding struct {
	target  error
	handler ErrorHandler
}

// HandlerRegistry selects a handler per failure. Bindings are matched with errors.Is in
// the order they were added, falling back to the default handler.
type HandlerRegistry struct {
	handlers       map[string]ErrorHandler
	bindings       []binding
	defaultHandler ErrorHandler
	mu             sync.RWMutex
}

// NewHandlerRegistry creates a registry whose default is defaultHandler
func NewHandlerRegistry(defaultHandler ErrorHandler) (*HandlerRegistry, error) {
	if defaultHandler == nil {
		return nil, fmt.Errorf("cannot create registry with nil default handler")
	}
	registry := &HandlerRegistry{
		handlers:       make(map[string]ErrorHandler),
		defaultHandler: defaultHandler,
	}
	if err := registry.RegisterHandler(defaultHandler); err != nil {
		return nil, err
	}
	return registry, nil
}

// RegisterHandler registers an error handler
func (r *HandlerRegistry) RegisterHandler(handler ErrorHandler) error {
	if handler == nil {
		return fmt.Errorf("cannot register nil handler")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := handler.Name()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("handler with name %s already exists", name)
	}

	r.handlers[name] = handler
	return nil
}

// UnregisterHandler unregisters an error handler and its bindings
func (r *HandlerRegistry) UnregisterHandler(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; !exists {
		return fmt.Errorf("handler with name %s not found", name)
	}
	if r.defaultHandler.Name() == name {
		return fmt.Errorf("cannot unregister default handler %s", name)
	}

	delete(r.handlers, name)

	kept := r.bindings[:0]
	for _, b := range r.bindings {
		if b.handler.Name() != name {
			kept = append(kept, b)
		}
	}
	r.bindings = kept
	return nil
}

// GetHandler gets an error handler by name
func (r *HandlerRegistry) GetHandler(name string) (ErrorHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, exists := r.handlers[name]
	if !exists {
		return nil, fmt.Errorf("handler with name %s not found", name)
	}
	return handler, nil
}

// Bind routes failures matching target to the named handler
func (r *HandlerRegistry) Bind(target error, handlerName string) error {
	if target == nil {
		return fmt.Errorf("cannot bind nil error")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	handler, exists := r.handlers[handlerName]
	if !exists {
		return fmt.Errorf("handler with name %s not found", handlerName)
	}
	r.bindings = append(r.bindings, binding{target: target, handler: handler})
	return nil
}

// Unbind removes every binding for target
func (r *HandlerRegistry) Unbind(target error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.bindings[:0]
	for _, b := range r.bindings {
		if b.target != target {
			kept = append(kept, b)
		}
	}
	r.bindings = kept
}

// HandlerFor returns the handler for err
func (r *HandlerRegistry) HandlerFor(err error) ErrorHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.bindings {
		if stderrors.Is(err, b.target) && b.handler.CanHandle(err) {
			return b.handler
		}
	}
	return r.defaultHandler
}

// SetDefaultHandler sets and registers the default error handler
func (r *HandlerRegistry) SetDefaultHandler(handler ErrorHandler) error {
	if handler == nil {
		return fmt.Errorf("cannot set nil as default handler")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[handler.Name()] = handler
	r.defaultHandler = handler
	return nil
}

// DefaultHandler returns the default error handler
func (r *HandlerRegistry) DefaultHandler() ErrorHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultHandler
}

// ListHandlers lists registered handler names in sorted order
func (r *HandlerRegistry) ListHandlers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch hands errCtx to the selected handler and returns whatever it escalates
func (r *HandlerRegistry) Dispatch(ctx context.Context, errCtx *ErrorContext) error {
	if errCtx == nil || errCtx.Error == nil {
		return nil
	}
	return r.HandlerFor(errCtx.Error).HandleError(ctx, errCtx)
}
