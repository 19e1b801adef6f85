// Package cov implements change-of-value subscriptions.
//
// A subscriber asks to be told when a monitored object changes. The
// subscription is keyed by (subscriber, process id, object): subscribing
// again with the same key replaces the lifetime and confirmation mode of
// the existing subscription instead of adding a second one.
//
// # Notifications
//
// The manager never inspects values itself. Objects latch a sticky changed
// flag when their present value moves by the COV increment or their
// out-of-service state flips. Poll collects every latched object, sends
// one notification per matching subscription and then acknowledges the
// flag, so each change is reported exactly once.
//
// A new subscription receives an initial notification with the current
// values straight away.
//
// # Lifetimes
//
// A lifetime of zero subscribes indefinitely. Otherwise the subscription
// expires when its lifetime has elapsed; expired subscriptions are
// removed at the start of the next Poll and are not notified. Each
// notification carries the remaining lifetime in seconds.
package cov
