package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mattjoyce/lingua/internal/command"
	"github.com/mattjoyce/lingua/internal/fault"
)

// Router maps languages to engines. It is immutable after construction.
type Router struct {
	engines map[command.Language]Engine
}

// NewRouter registers engines by their language. Registering two engines for
// one language is an error.
func NewRouter(engines ...Engine) (*Router, error) {
	r := &Router{engines: make(map[command.Language]Engine, len(engines))}
	for _, e := range engines {
		lang := e.Language()
		if _, dup := r.engines[lang]; dup {
			return nil, fmt.Errorf("engine for language %q registered twice", lang)
		}
		r.engines[lang] = e
	}
	return r, nil
}

// Select returns the engine serving cmd's language.
func (r *Router) Select(cmd *command.Command) (Engine, error) {
	e, ok := r.engines[cmd.Language()]
	if !ok {
		return nil, fault.LanguageNotSupported(cmd.Language().String())
	}
	return e, nil
}

// Languages returns the registered languages, sorted.
func (r *Router) Languages() []command.Language {
	out := make([]command.Language, 0, len(r.engines))
	for l := range r.engines {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Close closes every engine and joins their errors.
func (r *Router) Close() error {
	var errs []error
	for _, l := range r.Languages() {
		if err := r.engines[l].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s engine: %w", l, err))
		}
	}
	return errors.Join(errs...)
}
