package orchestrator

import "errors"

// Sentinel errors for release preconditions. Each is returned wrapped with a
// remediation hint.
var (
	// ErrDirty indicates uncommitted changes in the working tree.
	ErrDirty = errors.New("working tree has uncommitted changes")
	// ErrNotMainBranch indicates HEAD is not on the main branch.
	ErrNotMainBranch = errors.New("not on the main branch")
	// ErrNotLatest indicates HEAD differs from the remote main branch.
	ErrNotLatest = errors.New("HEAD is not the latest commit of the remote main branch")
	// ErrPendingRecovery indicates a checkpoint left by an interrupted run.
	ErrPendingRecovery = errors.New("a previous release run did not finish")
)
