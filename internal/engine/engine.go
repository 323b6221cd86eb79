// Package engine defines the backend contract the invoker drives and the
// router that selects a backend by query language.
//
// An Engine turns a validated Command into an Invocation. The Invocation is
// inert until Execute runs; Cancel may be called at any time from any
// goroutine, before, during or after Execute. Execute yields Results, a
// single-use payload that must be closed exactly once.
package engine

import (
	"context"
	"io"

	"github.com/mattjoyce/lingua/internal/auth"
	"github.com/mattjoyce/lingua/internal/command"
	"github.com/mattjoyce/lingua/internal/fault"
)

//go:generate mockgen -destination=mocks/mock_engine.go -package=mocks github.com/mattjoyce/lingua/internal/engine Engine,Invocation,Results

// Engine prepares invocations for one query language.
type Engine interface {
	Language() command.Language
	// Prepare binds cmd to an executable Invocation. Errors are returned as
	// produced: usage errors for bad commands, fault.InvalidQuery for text the
	// backend rejects, fault.Unavailable when the backend cannot serve.
	Prepare(ctx context.Context, cmd *command.Command) (Invocation, error)
	Close() error
}

// Invocation is a prepared unit of work.
type Invocation interface {
	RequiredPermission() auth.Permission
	Execute(ctx context.Context) (Results, error)
	// Cancel aborts in-flight work. Idempotent and safe to call concurrently
	// with Execute.
	Cancel()
}

// Results is a single-use payload writer.
type Results interface {
	MediaType() string
	Write(w io.Writer) error
	// Close releases backend resources. Safe to call more than once; only
	// the first call has effect.
	Close() error
}

// Action is the operation a command asks for.
type Action string

const (
	ActionQuery  Action = command.ParamQuery
	ActionUpdate Action = command.ParamUpdate
)

// Permission returns the permission required to run the action.
func (a Action) Permission() auth.Permission {
	if a == ActionUpdate {
		return auth.PermissionInvokeUpdate
	}
	return auth.PermissionInvokeQuery
}

// Operation resolves the single action carried by cmd and its text.
func Operation(cmd *command.Command) (Action, string, error) {
	props := cmd.Properties()
	hasQuery, hasUpdate := props.Has(command.ParamQuery), props.Has(command.ParamUpdate)
	switch {
	case hasQuery && hasUpdate:
		return "", "", fault.BadRequest("parameters %q and %q are mutually exclusive", command.ParamQuery, command.ParamUpdate)
	case hasUpdate:
		text, err := cmd.Require(command.ParamUpdate)
		return ActionUpdate, text, err
	case hasQuery:
		text, err := cmd.Require(command.ParamQuery)
		return ActionQuery, text, err
	}
	return "", "", fault.Missing("one of %q or %q is required", command.ParamQuery, command.ParamUpdate)
}
