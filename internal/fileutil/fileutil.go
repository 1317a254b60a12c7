// Package fileutil provides output path resolution and small filesystem
// helpers shared by supervisors and the action dispatcher.
package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExpandTemplate substitutes the supported tokens into an output folder
// template. Tokens: {name}, {title}, {date} (session start, local time,
// 2006-01-02_150405). Unknown tokens are left untouched.
func ExpandTemplate(template, name, title string, start time.Time) string {
	replacer := strings.NewReplacer(
		"{name}", SanitizeName(name),
		"{title}", SanitizeName(title),
		"{date}", start.Format("2006-01-02_150405"),
	)
	return replacer.Replace(template)
}

// SanitizeName strips path separators and characters that are unsafe in
// folder names.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-",
		"?", "", "\"", "", "<", "", ">", "", "|", "",
	)
	return strings.TrimSpace(replacer.Replace(name))
}

// ResolveOutputDir combines the per-target override (when set) or the
// process-wide output root with the expanded template.
func ResolveOutputDir(root, override, template, name, title string, start time.Time) string {
	base := root
	if strings.TrimSpace(override) != "" {
		base = override
	}
	return filepath.Join(base, ExpandTemplate(template, name, title, start))
}

// DirExists reports whether path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
