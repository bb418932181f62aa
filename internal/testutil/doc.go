// Package testutil contains builders used across tests to assemble
// conversation states without repeating message plumbing. Not intended for
// production usage.
package testutil
