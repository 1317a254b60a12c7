package platform

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"streamcap/internal/config"
	"streamcap/internal/services"
	"streamcap/internal/store"
)

// Status reports the outcome of one liveness probe.
type Status struct {
	Live      bool
	Title     string
	AvatarURL string
}

// Platform probes and downloads one kind of live-stream source.
type Platform interface {
	// Name returns the platform tag targets use to select this implementation.
	Name() string
	// CheckLive probes whether the target is currently streaming.
	// ErrInvalidConfiguration is fatal to the caller; any other error is
	// treated as not live for this iteration.
	CheckLive(ctx context.Context, target *store.Target) (Status, error)
	// Download records one continuous part into destDir, blocking until the
	// part ends. A nil segment with nil error means the stream yielded no
	// data this attempt (session over).
	Download(ctx context.Context, target *store.Target, destDir string) (*store.Segment, error)
	// PartDelay is the wait between consecutive part downloads.
	PartDelay() time.Duration
}

// Registry resolves platform tags to implementations.
type Registry struct {
	platforms map[string]Platform
}

// NewRegistry builds a registry with the built-in platforms configured.
func NewRegistry(cfg *config.Config) *Registry {
	reg := &Registry{platforms: make(map[string]Platform)}
	reg.Register(newHLS(cfg.Platforms.HLS))
	reg.Register(newYTDLP(cfg.Platforms.YTDLP))
	return reg
}

// Register adds or replaces a platform implementation.
func (r *Registry) Register(p Platform) {
	if p == nil {
		return
	}
	r.platforms[strings.ToLower(p.Name())] = p
}

// ForTarget resolves the platform for a target's tag.
func (r *Registry) ForTarget(target *store.Target) (Platform, error) {
	tag := strings.ToLower(strings.TrimSpace(target.Platform))
	p, ok := r.platforms[tag]
	if !ok {
		return nil, services.Wrap(services.ErrUnsupportedPlatform, "platform",
			fmt.Sprintf("no implementation for tag %q", target.Platform), nil)
	}
	return p, nil
}

// Names lists the registered platform tags.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.platforms))
	for name := range r.platforms {
		names = append(names, name)
	}
	return names
}

// validateTargetURL rejects target URLs that can never probe successfully.
func validateTargetURL(target *store.Target) error {
	parsed, err := url.Parse(strings.TrimSpace(target.URL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return services.Wrap(services.ErrInvalidConfiguration, "platform",
			fmt.Sprintf("target url %q is not an absolute URL", target.URL), err)
	}
	switch parsed.Scheme {
	case "http", "https":
		return nil
	default:
		return services.Wrap(services.ErrInvalidConfiguration, "platform",
			fmt.Sprintf("target url scheme %q unsupported", parsed.Scheme), nil)
	}
}
