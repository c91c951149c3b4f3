package adapter

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/idg10/rxrewrite/asyncpush"
	apperrors "github.com/idg10/rxrewrite/errors"
	"github.com/idg10/rxrewrite/expr"
	"github.com/idg10/rxrewrite/push"
)

// Bridge converts streams of one element type without static types. It is
// how the command line and HTTP surfaces, which only know element type names,
// feed and read pipelines.
type Bridge struct {
	// Elem is the element type name as it appears in shapes.
	Elem string

	// ToAsync adapts a push.Observable of Elem.
	ToAsync func(src any, opts ...Option) (any, error)
	// ToPush adapts an asyncpush.Observable of Elem.
	ToPush func(src any, opts ...Option) (any, error)
	// FromValues parses raw values into a push.Observable of Elem.
	FromValues func(raw []string) (any, error)
	// Erase turns a push.Observable of Elem into a push.Observable[any].
	Erase func(src any) (push.Observable[any], error)
}

var (
	bridgesMu sync.RWMutex
	bridges   = make(map[string]*Bridge)
)

// RegisterBridge registers the bridge for T, parsing raw values with parse.
// A later registration for the same type replaces the earlier one.
func RegisterBridge[T any](parse func(string) (T, error)) {
	elem := expr.TypeName[T]()
	b := &Bridge{
		Elem: elem,
		ToAsync: func(src any, opts ...Option) (any, error) {
			s, ok := src.(push.Observable[T])
			if !ok {
				return nil, mismatch(src, "push", elem)
			}
			return ToAsync(s, opts...), nil
		},
		ToPush: func(src any, opts ...Option) (any, error) {
			s, ok := src.(asyncpush.Observable[T])
			if !ok {
				return nil, mismatch(src, "async-push", elem)
			}
			return push.Observable[T](ToPush(s, opts...)), nil
		},
		FromValues: func(raw []string) (any, error) {
			values := make([]T, len(raw))
			for i, r := range raw {
				v, err := parse(r)
				if err != nil {
					return nil, apperrors.InvalidInput("values",
						fmt.Sprintf("value %d (%q) is not a valid %s", i, r, elem)).WithCause(err)
				}
				values[i] = v
			}
			return push.FromSlice(values), nil
		},
		Erase: func(src any) (push.Observable[any], error) {
			s, ok := src.(push.Observable[T])
			if !ok {
				return nil, mismatch(src, "push", elem)
			}
			return push.Select(s, func(v T) any { return v }), nil
		},
	}

	bridgesMu.Lock()
	defer bridgesMu.Unlock()
	bridges[elem] = b
}

// LookupBridge returns the bridge registered for the element type name.
func LookupBridge(elem string) (*Bridge, error) {
	bridgesMu.RLock()
	defer bridgesMu.RUnlock()
	b, ok := bridges[elem]
	if !ok {
		return nil, apperrors.NotFound("bridge", elem)
	}
	return b, nil
}

// Bridges returns the registered element type names, sorted.
func Bridges() []string {
	bridgesMu.RLock()
	defer bridgesMu.RUnlock()
	names := make([]string, 0, len(bridges))
	for name := range bridges {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func mismatch(src any, model, elem string) error {
	return apperrors.Internal(fmt.Errorf("want a %s stream of %s, got %T", model, elem, src))
}

func init() {
	RegisterBridge(strconv.Atoi)
	RegisterBridge(func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
	RegisterBridge(func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
	RegisterBridge(func(s string) (string, error) { return s, nil })
	RegisterBridge(strconv.ParseBool)
}
