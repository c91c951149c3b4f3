// Package push is the synchronous push execution model.
//
// An Observable delivers notifications to an Observer through plain method
// calls: zero or more OnNext followed by at most one of OnError or
// OnCompleted. Subscribe returns a Disposable that is usable immediately;
// disposing it stops delivery.
//
// Operators follow the same construction pattern: a generic constructor wraps
// its source and returns a new Observable; nothing happens until Subscribe.
//
//	src := push.FromSlice([]int{1, 2, 3, 4})
//	evens := push.Where(src, func(n int) bool { return n%2 == 0 })
//	avg := push.Average(evens)
//	values, err := push.Collect(ctx, avg) // [3]
//
// # Operators
//
//   - Select, Where, Take, Skip, Concat: element-wise and sequencing
//   - Average, Sum, Count, Min, Max: aggregates, emit once on completion
//   - DefaultIfEmpty: substitute a value for an empty sequence
//
// Every operator detaches from its upstream as soon as it has forwarded a
// terminal notification.
package push
