package lsp

import (
	"net/url"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/rlch/pyhints/pysource"
)

// position converts a byte offset in f to an LSP position.
func position(f *pysource.File, offset int) protocol.Position {
	line, col := f.LineCol(offset)

	return protocol.Position{
		Line:      uint32(line), //nolint:gosec // G115: line numbers are non-negative and small
		Character: uint32(col),  //nolint:gosec // G115: columns are non-negative and small
	}
}

// offsetRange converts a byte range in f to an LSP range.
func offsetRange(f *pysource.File, start, end int) protocol.Range {
	return protocol.Range{Start: position(f, start), End: position(f, end)}
}

// offsetOf converts an LSP position to a byte offset in f.
func offsetOf(f *pysource.File, pos protocol.Position) int {
	return f.Offset(int(pos.Line), int(pos.Character))
}

func rangePtr(r protocol.Range) *protocol.Range {
	return &r
}

// URIToPath converts a document URI to a file system path.
func URIToPath(uri protocol.DocumentURI) string {
	u, err := url.Parse(string(uri))
	if err != nil {
		return strings.TrimPrefix(string(uri), "file://")
	}

	if u.Scheme == "file" {
		return u.Path
	}

	return string(uri)
}

// PathToURI converts a file system path to a document URI.
func PathToURI(path string) protocol.DocumentURI {
	return protocol.DocumentURI("file://" + path)
}
