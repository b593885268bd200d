// Package buildfile reads and updates the build.sh metadata of packages in
// a Termux-style packages tree.
//
// A package's metadata is a shell script of declarative KEY=value lines.
// This package only understands the handful of declarations relevant to
// update detection; everything else in the script is preserved untouched.
package buildfile

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Declaration keys read and written by this tool.
const (
	KeySrcURL     = "TERMUX_PKG_SRCURL"
	KeyAutoUpdate = "TERMUX_PKG_AUTO_UPDATE"
	KeyTagType    = "TERMUX_PKG_UPDATE_TAG_TYPE"
	KeyMethod     = "TERMUX_PKG_UPDATE_METHOD"
)

// ScriptName is the metadata file name inside a package directory.
const ScriptName = "build.sh"

var declPattern = regexp.MustCompile(`^([A-Z_][A-Z0-9_]*)=(.*)$`)

// Package is one package directory with the declarations this tool cares
// about already extracted. The package name is derived from the directory
// basename, matching how the build system identifies packages.
type Package struct {
	Name       string
	Dir        string
	SrcURL     string
	AutoUpdate string // raw declared value, empty if absent
	TagType    string
	Method     string

	declared map[string]bool
}

// Load reads the build.sh of the package at dir.
// It fails if the directory has no build.sh.
func Load(dir string) (*Package, error) {
	path := filepath.Join(dir, ScriptName)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	p := &Package{
		Name:     filepath.Base(filepath.Clean(dir)),
		Dir:      dir,
		declared: make(map[string]bool),
	}
	for _, line := range strings.Split(string(raw), "\n") {
		m := declPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		key, value := m[1], unquote(m[2])
		p.declared[key] = true
		switch key {
		case KeySrcURL:
			p.SrcURL = value
		case KeyAutoUpdate:
			p.AutoUpdate = value
		case KeyTagType:
			p.TagType = value
		case KeyMethod:
			p.Method = value
		}
	}
	return p, nil
}

// ScriptPath returns the path of the package's build.sh.
func (p *Package) ScriptPath() string {
	return filepath.Join(p.Dir, ScriptName)
}

// HasAutoUpdate reports whether the package already declares
// TERMUX_PKG_AUTO_UPDATE, regardless of its value. An existing declaration
// is an explicit maintainer decision and must never be overridden.
func (p *Package) HasAutoUpdate() bool {
	return p.declared[KeyAutoUpdate]
}

// unquote strips one matching pair of surrounding quotes from a declaration
// value. Shell values are usually written as KEY="value" or KEY='value'.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// cloneMarker prefixes source URLs with repository-clone semantics: the
// build fetches the whole git history instead of a release artifact.
const cloneMarker = "git+"

// Source is a parsed source locator. Clone is true when the URL carried the
// git+ marker; release-tag lookups do not apply to such sources.
type Source struct {
	URL   string
	Clone bool
}

// ParseSource splits a raw TERMUX_PKG_SRCURL value into its clone marker
// and plain URL.
func ParseSource(raw string) Source {
	raw = strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(raw, cloneMarker); ok {
		return Source{URL: rest, Clone: true}
	}
	return Source{URL: raw}
}

// Host returns the lowercased host of the source URL, or empty if the URL
// does not parse.
func (s Source) Host() string {
	u, err := url.Parse(s.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
