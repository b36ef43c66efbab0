// Package testutils provides helpers shared by package tests: a capturing
// slog handler and a frozen clock.
package testutils
