package catalog

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Funcs maps function names used by pipeline definitions to Go functions.
// Each function has a fixed type, which becomes the scalar shape of the
// argument it is passed as.
type Funcs map[string]any

// DefaultFuncs returns the built-in function table.
func DefaultFuncs() Funcs {
	return Funcs{
		// int
		"isEven":     func(n int) bool { return n%2 == 0 },
		"isOdd":      func(n int) bool { return n%2 != 0 },
		"isPositive": func(n int) bool { return n > 0 },
		"double":     func(n int) int { return n * 2 },
		"square":     func(n int) int { return n * n },
		"negate":     func(n int) int { return -n },
		"itoa":       strconv.Itoa,
		"toFloat":    func(n int) float64 { return float64(n) },

		// int64
		"isEven64": func(n int64) bool { return n%2 == 0 },
		"double64": func(n int64) int64 { return n * 2 },
		"toInt64":  func(n int) int64 { return int64(n) },

		// float64
		"isPositiveFloat": func(f float64) bool { return f > 0 },
		"half":            func(f float64) float64 { return f / 2 },
		"round":           func(f float64) int { return int(math.Round(f)) },

		// string
		"nonEmpty": func(s string) bool { return s != "" },
		"upper":    strings.ToUpper,
		"trim":     strings.TrimSpace,
		"length":   func(s string) int { return len(s) },
	}
}

// Lookup returns the function registered under name.
func (f Funcs) Lookup(name string) (any, bool) {
	fn, ok := f[name]
	return fn, ok
}

// Names returns the sorted function names.
func (f Funcs) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
