// Package knowledge answers department questions from markdown documents.
//
// Documents live under <dir>/<department>/*.md and are split into chunks at
// headings. InMemoryIndex scores chunks by term overlap with the query;
// NewSearchTool exposes one department of an Index to a specialist.
package knowledge
