package orchestrator

// State names a step of the release workflow. States are reported to the
// Reporter and recorded in the event log as they are entered.
type State string

// Workflow states in execution order.
const (
	StateStart              State = "start"
	StateAbortIfDirty       State = "abort_if_dirty"
	StateLocatePackage      State = "locate_package"
	StateResolveVersion     State = "resolve_version"
	StateAnalyzeWorkspace   State = "analyze_workspace"
	StateArmed              State = "armed"
	StateAbortIfNotLatest   State = "abort_if_not_latest_main"
	StateMutateConstants    State = "mutate_version_constants"
	StateMutateManifest     State = "mutate_manifest_version"
	StateBuild              State = "build"
	StatePublishCommit      State = "publish_commit_tagged"
	StateRemoveDistTag      State = "remove_dist_tag"
	StateMutateDependents   State = "mutate_dependent_ranges"
	StateBumpBoilerplate    State = "maybe_bump_boilerplate"
	StateGenerateChangelog  State = "generate_changelog"
	StateShowPreview        State = "show_preview"
	StateAwaitConfirmation  State = "await_confirmation"
	StateRefreshLockfile    State = "refresh_lockfile"
	StateGitCommit          State = "git_commit"
	StateGitTag             State = "git_tag"
	StatePublish            State = "publish"
	StatePublishBoilerplate State = "publish_boilerplate"
	StateGitPush            State = "git_push"
	StateRollback           State = "rollback"
	StateEnd                State = "end"
)
