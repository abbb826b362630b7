package http

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

// splitResponse separates header block and body of a raw response
func splitResponse(t *testing.T, raw []byte) (map[string]string, string, []byte) {
	t.Helper()

	idx := bytes.Index(raw, []byte("\r\n\r\n"))
	require.GreaterOrEqual(t, idx, 0, "no header terminator in %q", raw)

	lines := strings.Split(string(raw[:idx]), "\r\n")
	headers := make(map[string]string, len(lines))
	for _, l := range lines[1:] {
		k, v, ok := strings.Cut(l, ": ")
		require.True(t, ok, "bad header line %q", l)
		headers[k] = v
	}
	return headers, lines[0], raw[idx+4:]
}

// headingText returns the text of the first <h1> in an HTML document
func headingText(t *testing.T, body []byte) string {
	t.Helper()

	doc, err := html.Parse(bytes.NewReader(body))
	require.NoError(t, err)

	var find func(*html.Node) string
	find = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.Data == "h1" && n.FirstChild != nil {
			return n.FirstChild.Data
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if s := find(c); s != "" {
				return s
			}
		}
		return ""
	}
	return find(doc)
}

func TestAppendErrorResponse(t *testing.T) {
	codes := []int{StatusBadRequest, StatusNotFound, StatusMethodNotAllowed, StatusInternalServerError}

	for _, code := range codes {
		t.Run(strconv.Itoa(code), func(t *testing.T) {
			raw, err := AppendErrorResponse(nil, code, 2048)
			require.NoError(t, err)

			headers, status, body := splitResponse(t, raw)
			assert.Equal(t, "HTTP/1.1 "+strconv.Itoa(code)+" "+StatusText(code), status)
			assert.Equal(t, "text/html", headers["Content-Type"])
			assert.Equal(t, "close", headers["Connection"])
			assert.Equal(t, strconv.Itoa(len(body)), headers["Content-Length"])
			assert.Equal(t, strconv.Itoa(code)+" "+StatusText(code), headingText(t, body))
		})
	}
}

func TestAppendErrorResponse_NotFoundBody(t *testing.T) {
	raw, err := AppendErrorResponse(nil, StatusNotFound, 0)
	require.NoError(t, err)

	_, _, body := splitResponse(t, raw)
	assert.Contains(t, string(body), "404")
	assert.Contains(t, string(body), "Not Found")
}

func TestAppendSuccessHeader(t *testing.T) {
	raw, err := AppendSuccessHeader(nil, 37, 2048)
	require.NoError(t, err)

	headers, status, body := splitResponse(t, raw)
	assert.Equal(t, "HTTP/1.1 200 OK", status)
	assert.Equal(t, "37", headers["Content-Length"])
	assert.Equal(t, "text/html", headers["Content-Type"])
	// Known deviation: advertised even though the connection is closed afterwards
	assert.Equal(t, "keep-alive", headers["Connection"])
	assert.Empty(t, body)
}

func TestAppend_FormattingLimit(t *testing.T) {
	prefix := []byte("keep")

	out, err := AppendSuccessHeader(prefix, 1<<40, 16)
	assert.ErrorIs(t, err, ErrFormatting)
	assert.Equal(t, "keep", string(out), "dst must be restored on failure")

	out, err = AppendErrorResponse(prefix, StatusNotFound, 16)
	assert.ErrorIs(t, err, ErrFormatting)
	assert.Equal(t, "keep", string(out))
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "OK", StatusText(200))
	assert.Equal(t, "Method Not Allowed", StatusText(405))
	assert.Equal(t, "Unknown Status", StatusText(418))
}
