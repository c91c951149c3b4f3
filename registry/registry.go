package registry

import (
	"sort"
	"sync"

	apperrors "github.com/idg10/rxrewrite/errors"
	"github.com/idg10/rxrewrite/expr"
)

// Middleware wraps the implementation of an operator resolved from a
// registry of model m. The returned Impl typically delegates to next.
type Middleware func(m expr.Model, op *expr.Operator, next expr.Impl) expr.Impl

// Registry maps operator signatures of one execution model to their
// implementations. It is safe for concurrent use.
type Registry struct {
	model expr.Model

	mu         sync.RWMutex
	ops        map[string]*expr.Operator
	byName     map[string][]string
	middleware []Middleware
}

// New creates an empty registry for model m.
func New(m expr.Model) *Registry {
	return &Registry{
		model:  m,
		ops:    make(map[string]*expr.Operator),
		byName: make(map[string][]string),
	}
}

// Model returns the execution model of the registry.
func (r *Registry) Model() expr.Model { return r.model }

// Register adds op. Stream parameters and a stream result must belong to the
// registry's model. Registering a signature twice is an error: lookups must
// stay unambiguous.
func (r *Registry) Register(op expr.Operator) error {
	if op.Name == "" {
		return apperrors.InvalidInput("name", "operator needs a name")
	}
	if op.Impl == nil {
		return apperrors.InvalidInput("impl", "operator "+op.Name+" has no implementation")
	}
	if op.Result.IsZero() {
		return apperrors.InvalidInput("result", "operator "+op.Name+" has no result shape")
	}
	for _, s := range append(append([]expr.Shape(nil), op.Params...), op.Result) {
		if s.IsStream() && s.Model != r.model {
			return apperrors.InvalidInput("shape",
				"operator "+op.Key()+" mixes "+s.Model.String()+" streams into a "+r.model.String()+" registry")
		}
	}

	key := op.Key()
	stored := op
	stored.Params = append([]expr.Shape(nil), op.Params...)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ops[key]; exists {
		return apperrors.AmbiguousOperator(r.model.String(), key)
	}
	r.ops[key] = &stored
	r.byName[op.Name] = append(r.byName[op.Name], key)
	return nil
}

// MustRegister is Register for static catalogues. It panics on error.
func (r *Registry) MustRegister(ops ...expr.Operator) *Registry {
	for _, op := range ops {
		if err := r.Register(op); err != nil {
			panic(err)
		}
	}
	return r
}

// Use appends middleware. The first middleware is outermost. It applies to
// operators resolved after the call.
func (r *Registry) Use(mw ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw...)
}

// Has reports whether any signature is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName[name]) > 0
}

// Resolve finds the operator named name whose parameters match shapes
// exactly. The returned Operator is a copy whose Impl carries the registry's
// middleware.
func (r *Registry) Resolve(name string, shapes []expr.Shape) (*expr.Operator, error) {
	key := expr.SignatureKey(name, shapes)

	r.mu.RLock()
	op, ok := r.ops[key]
	mw := r.middleware
	r.mu.RUnlock()

	if !ok {
		return nil, apperrors.NoMatchingOperator(r.model.String(), name, expr.ShapeStrings(shapes)).
			WithDetail("candidates", r.Candidates(name))
	}

	resolved := *op
	resolved.Params = append([]expr.Shape(nil), op.Params...)
	impl := op.Impl
	for i := len(mw) - 1; i >= 0; i-- {
		impl = mw[i](r.model, &resolved, impl)
	}
	resolved.Impl = impl
	return &resolved, nil
}

// Candidates returns the sorted signatures registered under name.
func (r *Registry) Candidates(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := r.byName[name]
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.ops[k].Signature())
	}
	sort.Strings(out)
	return out
}

// Signatures returns every registered signature, sorted.
func (r *Registry) Signatures() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.ops))
	for _, op := range r.ops {
		out = append(out, op.Signature())
	}
	sort.Strings(out)
	return out
}

// Names returns the sorted operator names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered signatures.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ops)
}
