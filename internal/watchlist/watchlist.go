// Package watchlist loads the desired-state target list from a TOML file and
// watches it for edits. Each observed change produces a complete snapshot of
// the desired targets; diffing against running state is the reconciler's job.
package watchlist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"streamcap/internal/services"
	"streamcap/internal/store"
)

// fileTarget is the on-disk shape of one watchlist entry. Activated is a
// pointer so an omitted key means active.
type fileTarget struct {
	URL       string         `toml:"url"`
	Name      string         `toml:"name"`
	Platform  string         `toml:"platform"`
	Activated *bool          `toml:"activated"`
	OutputDir string         `toml:"output_dir"`
	OnPart    []store.Action `toml:"on_part"`
	OnFinish  []store.Action `toml:"on_finish"`
}

type fileRoot struct {
	Targets []fileTarget `toml:"targets"`
}

// Load parses a watchlist file into desired targets. A missing file is an
// error; an existing file with no entries is a valid empty list.
func Load(path string) ([]*store.Target, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "watchlist",
				fmt.Sprintf("watchlist file %q", path), err)
		}
		return nil, services.Wrap(services.ErrTransient, "watchlist", "read watchlist", err)
	}

	var root fileRoot
	if err := toml.Unmarshal(raw, &root); err != nil {
		return nil, services.Wrap(services.ErrInvalidConfiguration, "watchlist", "parse watchlist", err)
	}

	targets := make([]*store.Target, 0, len(root.Targets))
	seen := make(map[string]struct{}, len(root.Targets))
	for i, entry := range root.Targets {
		target, err := entry.toTarget()
		if err != nil {
			return nil, services.Wrap(services.ErrInvalidConfiguration, "watchlist",
				fmt.Sprintf("entry %d", i+1), err)
		}
		if _, dup := seen[target.URL]; dup {
			return nil, services.Wrap(services.ErrInvalidConfiguration, "watchlist",
				fmt.Sprintf("duplicate url %q", target.URL), nil)
		}
		seen[target.URL] = struct{}{}
		targets = append(targets, target)
	}
	return targets, nil
}

func (f fileTarget) toTarget() (*store.Target, error) {
	url := strings.TrimSpace(f.URL)
	if url == "" {
		return nil, errors.New("url is required")
	}
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required for %q", url)
	}
	platform := strings.ToLower(strings.TrimSpace(f.Platform))
	if platform == "" {
		platform = "ytdlp"
	}
	activated := true
	if f.Activated != nil {
		activated = *f.Activated
	}
	return &store.Target{
		URL:       url,
		Name:      name,
		Platform:  platform,
		Activated: activated,
		OutputDir: strings.TrimSpace(f.OutputDir),
		OnPart:    f.OnPart,
		OnFinish:  f.OnFinish,
	}, nil
}
