// Package graph serves a small triple-pattern query dialect over the
// dataset's triples table.
package graph

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/mattjoyce/lingua/internal/auth"
	"github.com/mattjoyce/lingua/internal/command"
	"github.com/mattjoyce/lingua/internal/engine"
	"github.com/mattjoyce/lingua/internal/fault"
	"github.com/mattjoyce/lingua/internal/format"
)

type Engine struct {
	db *sql.DB
}

// New returns an engine over the triples table in db. The caller owns db.
func New(db *sql.DB) *Engine {
	return &Engine{db: db}
}

func (e *Engine) Language() command.Language { return command.Graph }

func (e *Engine) Prepare(_ context.Context, cmd *command.Command) (engine.Invocation, error) {
	action, text, err := engine.Operation(cmd)
	if err != nil {
		return nil, err
	}
	mediaType, err := format.Negotiate(cmd.Acceptable())
	if err != nil {
		return nil, err
	}
	st, err := Parse(text)
	if err != nil {
		return nil, fault.InvalidQuery(err)
	}
	if st.Form.Mutating() != (action == engine.ActionUpdate) {
		return nil, fault.InvalidQuery(fmt.Errorf("%s is not a valid %s", st.Form, action))
	}
	return &invocation{db: e.db, action: action, st: st, mediaType: mediaType}, nil
}

func (e *Engine) Close() error { return nil }

type invocation struct {
	engine.Cancellation

	db        *sql.DB
	action    engine.Action
	st        *Statement
	mediaType string
}

func (i *invocation) RequiredPermission() auth.Permission { return i.action.Permission() }

func (i *invocation) Execute(ctx context.Context) (engine.Results, error) {
	ctx, release, err := i.Bind(ctx)
	if err != nil {
		return nil, err
	}
	switch i.st.Form {
	case FormInsert, FormDelete:
		defer release()
		return i.modify(ctx)
	case FormAsk:
		defer release()
		return i.ask(ctx)
	}
	res, err := i.selectRows(ctx, release)
	if err != nil {
		release()
		return nil, err
	}
	return res, nil
}

func (i *invocation) modify(ctx context.Context) (engine.Results, error) {
	stmt := `INSERT OR IGNORE INTO triples (subject, predicate, object) VALUES (?, ?, ?)`
	if i.st.Form == FormDelete {
		stmt = `DELETE FROM triples WHERE subject = ? AND predicate = ? AND object = ?`
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeError(ctx, err)
	}
	defer func() { _ = tx.Rollback() }()

	var affected int64
	for _, p := range i.st.Patterns {
		res, err := tx.ExecContext(ctx, stmt, p.Subject.Value, p.Predicate.Value, p.Object.Value)
		if err != nil {
			return nil, storeError(ctx, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fault.Internal(err)
		}
		affected += n
	}
	if err := tx.Commit(); err != nil {
		return nil, storeError(ctx, err)
	}
	return i.table([]string{"affected"}, []any{affected}), nil
}

func (i *invocation) ask(ctx context.Context) (engine.Results, error) {
	query, args := translate(i.st, []string{}, 1)
	var found bool
	err := i.db.QueryRowContext(ctx, "SELECT EXISTS ("+query+")", args...).Scan(&found)
	if err != nil {
		return nil, storeError(ctx, err)
	}
	return i.table([]string{"boolean"}, []any{found}), nil
}

func (i *invocation) selectRows(ctx context.Context, release context.CancelFunc) (engine.Results, error) {
	columns := i.st.Projection
	if columns == nil {
		columns = i.st.Variables()
	}
	query, args := translate(i.st, columns, i.st.Limit)
	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError(ctx, err)
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
				return storeError(ctx, err)
			}
			if err := rw.Row(values); err != nil {
				return err
			}
		}
		if err := rows.Err(); err != nil {
			return storeError(ctx, err)
		}
		return rw.Close()
	}
	return engine.NewResults(i.mediaType, write, func() error {
		defer release()
		return rows.Close()
	}), nil
}

func (i *invocation) table(columns []string, row []any) engine.Results {
	return engine.NewResults(i.mediaType, func(w io.Writer) error {
		rw, err := format.NewRowWriter(i.mediaType, w)
		if err != nil {
			return err
		}
		return format.Table(rw, columns, row)
	}, nil)
}

var positions = [3]string{"subject", "predicate", "object"}

// translate compiles the basic graph pattern into one SQL join over the
// triples table. Each pattern gets its own alias; repeated variables become
// equality conditions against their first binding.
func translate(st *Statement, columns []string, limit int) (string, []any) {
	var (
		from  []string
		where []string
		args  []any
		bound = map[string]string{}
	)
	for n, p := range st.Patterns {
		alias := fmt.Sprintf("t%d", n)
		from = append(from, "triples "+alias)
		for k, t := range []Term{p.Subject, p.Predicate, p.Object} {
			col := alias + "." + positions[k]
			if !t.IsVar() {
				where = append(where, col+" = ?")
				args = append(args, t.Value)
				continue
			}
			if first, ok := bound[t.Var]; ok {
				where = append(where, col+" = "+first)
				continue
			}
			bound[t.Var] = col
		}
	}

	var sel []string
	for _, c := range columns {
		sel = append(sel, fmt.Sprintf("%s AS %q", bound[c], c))
	}
	if len(sel) == 0 {
		sel = []string{"1"}
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(sel, ", "))
	b.WriteString(" FROM ")
	b.WriteString(strings.Join(from, ", "))
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	if len(columns) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(orderBy(columns), ", "))
	}
	if limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	return b.String(), args
}

func orderBy(columns []string) []string {
	out := make([]string, len(columns))
	for i := range columns {
		out[i] = fmt.Sprint(i + 1)
	}
	return out
}

func storeError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fault.Classify(ctx.Err())
	}
	return fault.Unavailable(err)
}
