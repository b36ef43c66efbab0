// Package events carries decisions from background components to whoever
// presents them.
//
// The primary components are:
// - Event: a typed, user-scoped message with a JSON payload
// - EventEmitter: publishes events to every registered EventHandler
// - Inbox: an EventHandler that queues events per user until they are polled
package events
