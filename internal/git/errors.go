package git

import "errors"

// Sentinel errors for repository queries.
var (
	// ErrNotRepository indicates the directory is not inside a git work tree.
	ErrNotRepository = errors.New("not inside a git repository")
	// ErrUnknownRef indicates a ref that does not resolve to a commit.
	ErrUnknownRef = errors.New("ref does not resolve to a commit")
)
