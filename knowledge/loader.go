package knowledge

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// Load reads <department>/*.md from fsys and splits every document into
// chunks. Files in the root or nested deeper are ignored.
func Load(fsys fs.FS) ([]Chunk, error) {
	depts, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read knowledge root: %w", err)
	}

	var chunks []Chunk

	for _, d := range depts {
		if !d.IsDir() {
			continue
		}

		files, err := fs.Glob(fsys, path.Join(d.Name(), "*.md"))
		if err != nil {
			return nil, err
		}

		for _, f := range files {
			data, err := fs.ReadFile(fsys, f)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", f, err)
			}

			chunks = append(chunks, Split(d.Name(), f, string(data))...)
		}
	}

	return chunks, nil
}

// LoadDir indexes the documents found under dir and returns how many chunks
// were added.
func LoadDir(ix *InMemoryIndex, dir string) (int, error) {
	return LoadFS(ix, os.DirFS(dir))
}

// LoadFS indexes the documents of fsys and returns how many chunks were added.
func LoadFS(ix *InMemoryIndex, fsys fs.FS) (int, error) {
	chunks, err := Load(fsys)
	if err != nil {
		return 0, err
	}

	ix.Add(chunks...)

	return len(chunks), nil
}

// Split cuts a markdown document at its headings. Text before the first
// heading forms a chunk of its own; sections without body text are dropped.
// Chunk IDs are "<source>#<n>", n counting kept sections from zero.
func Split(department, source, markdown string) []Chunk {
	var (
		chunks  []Chunk
		heading string
		body    []string
	)

	flush := func() {
		content := strings.TrimSpace(strings.Join(body, "\n"))
		body = body[:0]

		if content == "" {
			return
		}

		chunks = append(chunks, Chunk{
			ID:         fmt.Sprintf("%s#%d", source, len(chunks)),
			Department: department,
			Source:     source,
			Heading:    heading,
			Content:    content,
		})
	}

	for _, line := range strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n") {
		if h, ok := headingText(line); ok {
			flush()

			heading = h

			continue
		}

		body = append(body, line)
	}

	flush()

	return chunks
}

func headingText(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, "#")
	level := len(line) - len(trimmed)

	if level == 0 || level > 6 || (trimmed != "" && trimmed[0] != ' ') {
		return "", false
	}

	return strings.TrimSpace(trimmed), true
}
