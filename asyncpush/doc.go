// Package asyncpush is the acknowledged push execution model.
//
// Every notification is a call that returns an error; the return of the call
// is the acknowledgement, and a source never sends the next notification
// before the previous call has returned. Subscribe and Dispose take a
// context and may block until the underlying work is done.
//
// A non-nil acknowledgement error tells the sender that the receiver could not
// accept the notification. Operators return such errors to their upstream
// unchanged.
//
// The operator surface mirrors package push: Select, Where, Take, Skip,
// Concat, DefaultIfEmpty, Average, Sum, Count, Min and Max. Operators detach
// from their upstream once they have forwarded a terminal notification.
package asyncpush
