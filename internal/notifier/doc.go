// Package notifier tells the outside world about registrations and new events.
//
// Registration notices are published as JSON to a RabbitMQ exchange so that
// mailers and dashboards can react without touching the event store. New
// events can also be announced on Twitter. Callers treat every notifier as
// best effort: a failed notification is logged and never undoes the store
// operation that triggered it.
package notifier
