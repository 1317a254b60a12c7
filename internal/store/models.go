package store

import (
	"slices"
	"time"
)

// ActionKind discriminates the configured side-effect variants.
type ActionKind string

const (
	// ActionRemoteSync submits downloaded files to the outbound transfer
	// collaborator as one batched request.
	ActionRemoteSync ActionKind = "remote_sync"
	// ActionCommand pipes the downloaded file list into an external command.
	ActionCommand ActionKind = "command"
)

// Action is one configured post-download side effect. The populated fields
// depend on Kind: remote-sync actions use Operation/Destination/ExtraArgs,
// command actions use Command/Args.
type Action struct {
	Kind        ActionKind `json:"kind" toml:"kind"`
	Enabled     bool       `json:"enabled" toml:"enabled"`
	Operation   string     `json:"operation,omitempty" toml:"operation,omitempty"`
	Destination string     `json:"destination,omitempty" toml:"destination,omitempty"`
	ExtraArgs   []string   `json:"extra_args,omitempty" toml:"extra_args,omitempty"`
	Command     string     `json:"command,omitempty" toml:"command,omitempty"`
	Args        []string   `json:"args,omitempty" toml:"args,omitempty"`
}

// Equal reports whether two actions are configured identically.
func (a Action) Equal(other Action) bool {
	return a.Kind == other.Kind &&
		a.Enabled == other.Enabled &&
		a.Operation == other.Operation &&
		a.Destination == other.Destination &&
		slices.Equal(a.ExtraArgs, other.ExtraArgs) &&
		a.Command == other.Command &&
		slices.Equal(a.Args, other.Args)
}

// ActionsEqual compares two action lists element-wise.
func ActionsEqual(a, b []Action) bool {
	return slices.EqualFunc(a, b, Action.Equal)
}

// Target is a watched live-stream source. URL is the natural key used for
// identity-preserving diffing; ID is assigned on first persistence.
type Target struct {
	ID        int64
	URL       string
	Name      string
	Platform  string
	Activated bool

	// Runtime state, persisted but refreshed while supervised. Preserved
	// across reconfiguration of the same URL.
	IsLive    bool
	Title     string
	AvatarURL string

	// OutputDir overrides the process-wide output template root when set.
	OutputDir string
	OnPart    []Action
	OnFinish  []Action

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EqualConfig reports whether two targets share the same configuration.
// Runtime fields (ID, IsLive, Title, AvatarURL, timestamps) are excluded:
// they change while a target is supervised and must not trigger restarts.
func (t *Target) EqualConfig(other *Target) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.URL == other.URL &&
		t.Name == other.Name &&
		t.Platform == other.Platform &&
		t.Activated == other.Activated &&
		t.OutputDir == other.OutputDir &&
		ActionsEqual(t.OnPart, other.OnPart) &&
		ActionsEqual(t.OnFinish, other.OnFinish)
}

// Segment is one continuously recorded part of a live session. Immutable
// once created.
type Segment struct {
	ID          int64
	TargetID    int64
	Title       string
	StartedAt   time.Time
	FilePath    string
	CaptionPath string
	CreatedAt   time.Time
}
