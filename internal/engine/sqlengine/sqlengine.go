// Package sqlengine executes relational statements against the dataset's
// SQLite database.
//
// Queries are limited to a single read statement and run on a handle opened
// read-only, so a query parameter can never mutate data. Updates run on the
// writable handle. Cancel aborts the statement context, which interrupts the driver and
// returns the connection to the pool.
package sqlengine

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/mattjoyce/lingua/internal/auth"
	"github.com/mattjoyce/lingua/internal/command"
	"github.com/mattjoyce/lingua/internal/engine"
	"github.com/mattjoyce/lingua/internal/fault"
	"github.com/mattjoyce/lingua/internal/format"
)

type Engine struct {
	db     *sql.DB
	reader *sql.DB
}

// New returns an engine that updates through db and queries through reader,
// which must be opened read-only (see storage.OpenReadOnly). The caller owns
// both handles.
func New(db, reader *sql.DB) *Engine {
	return &Engine{db: db, reader: reader}
}

func (e *Engine) Language() command.Language { return command.Relational }

func (e *Engine) Prepare(ctx context.Context, cmd *command.Command) (engine.Invocation, error) {
	action, text, err := engine.Operation(cmd)
	if err != nil {
		return nil, err
	}
	mediaType, err := format.Negotiate(cmd.Acceptable())
	if err != nil {
		return nil, err
	}

	handle := e.db
	if action == engine.ActionQuery {
		if err := checkQuery(text); err != nil {
			return nil, err
		}
		handle = e.reader
	}

	// Compile once to surface syntax errors before the request is admitted.
	stmt, err := handle.PrepareContext(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fault.Classify(ctx.Err())
		}
		return nil, fault.InvalidQuery(err)
	}
	_ = stmt.Close()

	return &invocation{db: handle, action: action, text: text, mediaType: mediaType}, nil
}

func (e *Engine) Close() error { return nil }

type invocation struct {
	engine.Cancellation

	db        *sql.DB
	action    engine.Action
	text      string
	mediaType string
}

func (i *invocation) RequiredPermission() auth.Permission { return i.action.Permission() }

func (i *invocation) Execute(ctx context.Context) (engine.Results, error) {
	ctx, release, err := i.Bind(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := i.db.Conn(ctx)
	if err != nil {
		release()
		if ctx.Err() != nil {
			return nil, fault.Classify(ctx.Err())
		}
		return nil, fault.Unavailable(err)
	}

	if i.action == engine.ActionUpdate {
		defer release()
		defer conn.Close()
		return i.update(ctx, conn)
	}

	res, err := i.query(ctx, conn, release)
	if err != nil {
		release()
		_ = conn.Close()
		return nil, err
	}
	return res, nil
}

func (i *invocation) update(ctx context.Context, conn *sql.Conn) (engine.Results, error) {
	out, err := conn.ExecContext(ctx, i.text)
	if err != nil {
		return nil, statementError(ctx, err)
	}
	affected, err := out.RowsAffected()
	if err != nil {
		return nil, fault.Internal(fmt.Errorf("rows affected: %w", err))
	}
	return engine.NewResults(i.mediaType, func(w io.Writer) error {
		rw, err := format.NewRowWriter(i.mediaType, w)
		if err != nil {
			return err
		}
		return format.Table(rw, []string{"affected"}, []any{affected})
	}, nil), nil
}

func (i *invocation) query(ctx context.Context, conn *sql.Conn, release context.CancelFunc) (engine.Results, error) {
	rows, err := conn.QueryContext(ctx, i.text)
	if err != nil {
		return nil, statementError(ctx, err)
	}
	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, fault.Internal(err)
	}

	write := func(w io.Writer) error {
		rw, err := format.NewRowWriter(i.mediaType, w)
		if err != nil {
			return err
		}
		if err := rw.Header(columns); err != nil {
			return err
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for k := range values {
			ptrs[k] = &values[k]
		}
		for rows.Next() {
			if err := rows.Scan(ptrs...); err != nil {
				return statementError(ctx, err)
			}
			if err := rw.Row(values); err != nil {
				return err
			}
		}
		if err := rows.Err(); err != nil {
			return statementError(ctx, err)
		}
		return rw.Close()
	}
	closeAll := func() error {
		err := rows.Close()
		release()
		if cerr := conn.Close(); err == nil {
			err = cerr
		}
		return err
	}
	return engine.NewResults(i.mediaType, write, closeAll), nil
}

func statementError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fault.Classify(ctx.Err())
	}
	return fault.InvalidQuery(err)
}
