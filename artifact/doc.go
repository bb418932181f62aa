// Package artifact stores generated documents, such as issued certificates,
// per session and addresses them with artifact://<session>/<id> references.
package artifact
