package knowledge

import (
	"embed"
	"io/fs"
)

//go:embed sample
var sampleFS embed.FS

// Sample returns the bundled demo documents, laid out as Load expects.
func Sample() fs.FS {
	sub, err := fs.Sub(sampleFS, "sample")
	if err != nil {
		panic(err)
	}

	return sub
}

// LoadSample indexes the bundled demo documents.
func LoadSample(ix *InMemoryIndex) (int, error) {
	return LoadFS(ix, Sample())
}
