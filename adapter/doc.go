// Package adapter converts streams between the push and async-push
// execution models.
//
// ToAsync presents a push stream as an async-push stream: every synchronous
// callback becomes an awaited notification and the push producer is held
// until the acknowledgement returns.
//
// ToPush presents an async-push stream as a push stream. A subscription moves
// through Unsubscribed, Subscribing and Active to one of Completed, Errored or
// Disposed; nothing is forwarded after a terminal notification or disposal.
// SubscribeContext and Subscription.DisposeContext suspend the caller until the
// async operation finishes or the context ends. Subscribe and Dispose use
// them with the configured timeouts.
//
// Both directions detach from their upstream as soon as a terminal
// notification has been forwarded.
package adapter
