package router

import (
	"errors"
	"strings"
)

var (
	// ErrTraversal is returned for any URI containing a parent-directory sequence
	ErrTraversal = errors.New("directory traversal attempt")
	// ErrPathTooLong is returned when the composed file path exceeds the limit
	ErrPathTooLong = errors.New("resolved path too long")
)

// DefaultPageFile is the file served for every route
const DefaultPageFile = "page.html"

// Resolver maps request URIs to page files under a document root.
//
// Every route serves exactly one file, <Root><URI>/<PageFile>. The traversal
// check is deliberately coarse: any ".." in the URI is refused, which also
// refuses legitimate names that contain two dots.
type Resolver struct {
	Root       string
	PageFile   string
	MaxPathLen int
}

// NewResolver creates a resolver for the given document root
func NewResolver(root string, maxPathLen int) *Resolver {
	return &Resolver{
		Root:       root,
		PageFile:   DefaultPageFile,
		MaxPathLen: maxPathLen,
	}
}

// Resolve returns the file path for uri
func (r *Resolver) Resolve(uri string) (string, error) {
	if strings.Contains(uri, "..") {
		return "", ErrTraversal
	}

	page := r.PageFile
	if page == "" {
		page = DefaultPageFile
	}

	var b strings.Builder
	b.Grow(len(r.Root) + len(uri) + 1 + len(page))
	b.WriteString(r.Root)
	b.WriteString(uri)
	b.WriteByte('/')
	b.WriteString(page)

	if r.MaxPathLen > 0 && b.Len() > r.MaxPathLen {
		return "", ErrPathTooLong
	}
	return b.String(), nil
}
