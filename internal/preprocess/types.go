// Package preprocess implements the Config Preprocessor (§4.F): include
// resolution, macro expansion, and conditional compilation over the
// class-language source files, producing one logical text stream plus a
// line-origin map and a warning list the Config Parser reports against.
package preprocess

import "github.com/standardbeagle/a3scan/internal/errors"

// Workspace names the roots the preprocessor searches when resolving
// `#include`: the including file's own directory is always tried first,
// then each entry here in order.
type Workspace struct {
	SearchRoots []string
}

// Origin maps one line of the logical output stream back to the file and
// line it came from, so the parser can report errors against the
// original source rather than the flattened stream.
type Origin struct {
	File string
	Line int
}

// Result is the preprocessor's output for one entry file.
type Result struct {
	Text        string
	Origins     []Origin // Origins[i] describes the file/line of output line i+1
	Diagnostics []errors.ParseDiagnostic
}

const (
	CodeIncludeNotFound   = "PE12"
	CodeMacroRedefinition = "PE20"
)
