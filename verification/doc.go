// Package verification gates sensitive actions behind a one-time code sent to
// the associate's registered phone.
//
// The flow has three steps, each exposed to the certificates specialist as a
// tool: request a code, verify it, and issue the certificate. A record keyed
// by (session, cedula) tracks progress; it is created pending, marked
// verified by a correct code and consumed by a successful issue, so one
// verification authorizes exactly one document.
package verification
