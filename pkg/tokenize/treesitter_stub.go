//go:build !cgo

package tokenize

// IsTreeSitterAvailable reports whether this build can parse with tree-sitter.
func IsTreeSitterAvailable() bool { return false }

// NewTreeSitter is unavailable without cgo.
func NewTreeSitter(path string) (Tokenizer, error) {
	return nil, ErrTreeSitterUnavailable
}
