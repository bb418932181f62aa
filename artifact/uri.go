package artifact

import (
	"fmt"
	"strings"
)

// Scheme prefixes artifact references handed to users and models.
const Scheme = "artifact://"

// URI returns the reference of an artifact: artifact://<session>/<id>.
func URI(sessionID, artifactID string) string {
	return Scheme + sessionID + "/" + artifactID
}

// ParseURI splits a reference produced by URI.
func ParseURI(uri string) (sessionID, artifactID string, err error) {
	rest, ok := strings.CutPrefix(uri, Scheme)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}

	sessionID, artifactID, ok = strings.Cut(rest, "/")
	if !ok || sessionID == "" || artifactID == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}

	return sessionID, artifactID, nil
}
