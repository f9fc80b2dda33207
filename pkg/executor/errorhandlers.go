package executor

import (
	"fmt"

	errs "github.com/jzx17/goexecutor/internal/errors"
	"github.com/jzx17/goexecutor/pkg/types"
)

// HandleErrors routes task failures matching target (errors.Is) to fn. Handlers are
// registered by name, so a second call with the same name only adds the target.
// Returning nil from fn marks the failure handled, anything else is logged as unhandled.
func (e *SingleThreadExecutor) HandleErrors(name string, target error, fn types.ErrorHandler) error {
	if fn == nil {
		return fmt.Errorf("error handler %q: nil function", name)
	}
	if _, err := e.handlers.GetHandler(name); err != nil {
		if err := e.handlers.RegisterHandler(errs.NewNamedFuncHandler(name, fn)); err != nil {
			return err
		}
	}
	return e.handlers.Bind(target, name)
}

// IgnoreErrors drops task failures matching any of targets without reporting them.
// Nil targets are skipped.
func (e *SingleThreadExecutor) IgnoreErrors(targets ...error) error {
	for _, target := range targets {
		if target == nil {
			continue
		}
		e.ignore.AddTarget(target)
		if err := e.handlers.Bind(target, e.ignore.Name()); err != nil {
			return err
		}
	}
	return nil
}

// UnbindErrors stops routing failures matching target to a dedicated handler
func (e *SingleThreadExecutor) UnbindErrors(target error) {
	e.handlers.Unbind(target)
}

// RemoveErrorHandler unregisters a handler added with HandleErrors, along with its targets
func (e *SingleThreadExecutor) RemoveErrorHandler(name string) error {
	return e.handlers.UnregisterHandler(name)
}

// SetDefaultErrorHandler replaces the handler for failures no target matches
func (e *SingleThreadExecutor) SetDefaultErrorHandler(fn types.ErrorHandler) error {
	if fn == nil {
		return fmt.Errorf("default error handler: nil function")
	}
	return e.handlers.SetDefaultHandler(errs.NewNamedFuncHandler("Default", fn))
}

// ErrorHandlers lists registered handler names in sorted order, and the name of the default
func (e *SingleThreadExecutor) ErrorHandlers() (names []string, defaultName string) {
	return e.handlers.ListHandlers(), e.handlers.DefaultHandler().Name()
}
