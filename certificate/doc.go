// Package certificate issues the documents an associate can request after
// verifying their identity: tax certificates, contribution statements and
// paz y salvo letters.
//
// A Generator renders the document from the associate's figures held in a
// Ledger and stores it in a core.ArtifactStore; the returned Certificate
// carries the artifact:// reference the assistant hands to the associate.
package certificate
