// Package task runs background work off the request path. Its main job is
// the timer runner, which periodically ticks the trigger engine for every
// user with a live session so interval-based review prompts fire without a
// client event.
package task
