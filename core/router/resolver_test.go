package router

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver("./routes", 511)

	tests := []struct {
		uri  string
		want string
	}{
		{"/", "./routes//page.html"},
		{"/foo", "./routes/foo/page.html"},
		{"/foo/bar", "./routes/foo/bar/page.html"},
		{"/with.dot", "./routes/with.dot/page.html"},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := r.Resolve(tt.uri)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_RejectsTraversal(t *testing.T) {
	r := NewResolver("/srv/www", 511)

	uris := []string{
		"/../etc/passwd",
		"..",
		"/a/../../b",
		"/foo..bar",
		"/trailing..",
		"/....//",
	}

	for _, uri := range uris {
		t.Run(uri, func(t *testing.T) {
			path, err := r.Resolve(uri)
			assert.ErrorIs(t, err, ErrTraversal)
			assert.Empty(t, path)
		})
	}
}

func TestResolver_PathTooLong(t *testing.T) {
	r := NewResolver("./routes", 32)

	_, err := r.Resolve("/" + strings.Repeat("x", 64))
	assert.ErrorIs(t, err, ErrPathTooLong)

	// "./routes" + "/ok" + "/page.html" is 21 bytes
	got, err := r.Resolve("/ok")
	require.NoError(t, err)
	assert.Len(t, got, 21)
}

func TestResolver_BoundaryLength(t *testing.T) {
	r := NewResolver("/r", 0)
	path, err := r.Resolve("/x")
	require.NoError(t, err)

	r.MaxPathLen = len(path)
	_, err = r.Resolve("/x")
	assert.NoError(t, err, "a path exactly at the limit is accepted")

	r.MaxPathLen = len(path) - 1
	_, err = r.Resolve("/x")
	assert.ErrorIs(t, err, ErrPathTooLong)
}

func TestResolver_CustomPageFile(t *testing.T) {
	r := &Resolver{Root: "/srv", PageFile: "index.htm"}
	got, err := r.Resolve("/docs")
	require.NoError(t, err)
	assert.Equal(t, "/srv/docs/index.htm", got)
}
