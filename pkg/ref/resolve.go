package ref

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/rs/zerolog"
)

// Result is the outcome of resolving one reference: either Resolved(id) or
// Unresolved(reason).
type Result struct {
	id  string
	err error
}

// Resolved returns a successful Result.
func Resolved(id string) Result { return Result{id: id} }

// Unresolved returns a failed Result carrying the reason.
func Unresolved(reason error) Result { return Result{err: reason} }

// ID returns the canonical identifier and whether resolution succeeded.
func (r Result) ID() (string, bool) { return r.id, r.err == nil }

// OK reports whether the reference resolved.
func (r Result) OK() bool { return r.err == nil }

// Err returns the reason the reference did not resolve, or nil.
func (r Result) Err() error { return r.err }

func (r Result) String() string {
	if r.err != nil {
		return fmt.Sprintf("Unresolved(%v)", r.err)
	}
	return fmt.Sprintf("Resolved(%s)", r.id)
}

// Resolve maps a parsed reference to its canonical identifier.
func Resolve(r Ref) Result {
	switch t := r.(type) {
	case StringRef:
		if t == "" {
			return Unresolved(ErrEmpty)
		}
		return Resolved(string(t))
	case IDRef:
		if t.ID == "" {
			return Unresolved(ErrEmpty)
		}
		return Resolved(t.ID)
	case PathRef:
		segments := strings.Split(t.Path, "/")
		last := segments[len(segments)-1]
		if last == "" {
			return Unresolved(fmt.Errorf("%w: %q", ErrEmptySegment, t.Path))
		}
		return Resolved(last)
	case SingletonRef:
		if t.Elem == nil {
			return Unresolved(ErrEmpty)
		}
		return Resolve(t.Elem)
	case InvalidRef:
		if t.Reason == nil {
			return Unresolved(ErrMalformed)
		}
		return Unresolved(t.Reason)
	default:
		return Unresolved(ErrEmpty)
	}
}

// Drop records a reference that a batch resolution left out.
type Drop struct {
	Index  int
	Reason error
}

// Batch is the outcome of resolving a sequence of references. IDs holds the
// successful resolutions in input order; Dropped holds the rest.
type Batch struct {
	IDs     []string
	Dropped []Drop
}

// Malformed counts the dropped references that were present but unusable,
// leaving out empty entries.
func (b Batch) Malformed() int {
	n := 0
	for _, d := range b.Dropped {
		if !errors.Is(d.Reason, ErrEmpty) {
			n++
		}
	}
	return n
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger that receives diagnostics about unresolved references.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// Resolver resolves references and reports unresolved ones to its logger.
// The zero value is not usable; call NewResolver.
type Resolver struct {
	logger zerolog.Logger
}

// NewResolver creates a Resolver. Without options diagnostics are discarded.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// One resolves a single reference of any shape.
// Multi-element sequences are unresolved; use Many for those.
func (r *Resolver) One(v any) Result {
	res := Resolve(Parse(v))
	if err := res.Err(); err != nil && !errors.Is(err, ErrEmpty) {
		r.logger.Warn().Err(err).Str("type", fmt.Sprintf("%T", v)).Msg("Unresolvable reference")
	}
	return res
}

// Many resolves every element of a sequence, keeping successful resolutions in
// order. Input that is not a sequence yields an empty Batch.
func (r *Resolver) Many(v any) Batch {
	batch := Batch{IDs: []string{}}

	if v == nil {
		r.logger.Debug().Msg("No references to resolve")
		return batch
	}

	rv := reflect.ValueOf(v)
	if k := rv.Kind(); (k != reflect.Slice && k != reflect.Array) || rv.Type().Elem().Kind() == reflect.Uint8 {
		r.logger.Warn().Err(ErrNotSequence).Str("type", fmt.Sprintf("%T", v)).Msg("Expected a sequence of references")
		return batch
	}

	batch.IDs = make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		res := Resolve(Parse(rv.Index(i).Interface()))
		if id, ok := res.ID(); ok {
			batch.IDs = append(batch.IDs, id)
			continue
		}
		batch.Dropped = append(batch.Dropped, Drop{Index: i, Reason: res.Err()})
		ev := r.logger.Warn()
		if errors.Is(res.Err(), ErrEmpty) {
			ev = r.logger.Debug()
		}
		ev.Err(res.Err()).Int("index", i).Msg("Dropping unresolvable reference")
	}
	return batch
}

var defaultResolver = NewResolver()

// ResolveOne resolves v without diagnostics. It returns false when v does not
// identify a document.
func ResolveOne(v any) (string, bool) {
	return defaultResolver.One(v).ID()
}

// ResolveMany resolves every element of v without diagnostics and returns the
// identifiers that resolved, in order.
func ResolveMany(v any) []string {
	return defaultResolver.Many(v).IDs
}
