// Package profile loads compliance profiles from disk: profile.yml metadata
// plus control files under controls/, turned into rules for the runner.
package profile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/blang/semver/v4"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
	"github.com/wizzomafizzo/gauntlet/internal/constants"
	"github.com/wizzomafizzo/gauntlet/internal/logging"
	"github.com/wizzomafizzo/gauntlet/internal/report"
	"github.com/wizzomafizzo/gauntlet/internal/rule"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingMetadata = errors.New("profile metadata not found")
	ErrInvalidProfile  = errors.New("invalid profile")
	ErrInvalidControl  = errors.New("invalid control")
)

const controlsPattern = constants.ControlsDir + "/**/*.{yml,yaml}"

type Profile struct {
	Name       string       `yaml:"name"`
	Title      string       `yaml:"title"`
	Version    string       `yaml:"version"`
	Maintainer string       `yaml:"maintainer"`
	Summary    string       `yaml:"summary"`
	Dir        string       `yaml:"-"`
	Digest     string       `yaml:"-"`
	Rules      []*rule.Rule `yaml:"-"`
}

// ToReport returns the metadata formatters render.
func (p *Profile) ToReport() report.Profile {
	return report.Profile{
		Name:       p.Name,
		Title:      p.Title,
		Version:    p.Version,
		Maintainer: p.Maintainer,
		Summary:    p.Summary,
		Digest:     p.Digest,
	}
}

// Loader reads profiles and resolves their resources.
type Loader struct {
	fs        afero.Fs
	lookupEnv LookupEnvFunc
}

// Option configures a Loader.
type Option func(*Loader)

// WithLookupEnv replaces os.LookupEnv for env resources.
func WithLookupEnv(fn LookupEnvFunc) Option {
	return func(l *Loader) { l.lookupEnv = fn }
}

func NewLoader(fsys afero.Fs, opts ...Option) *Loader {
	l := &Loader{fs: fsys, lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadAll loads every directory in order and stops at the first error.
func (l *Loader) LoadAll(ctx context.Context, dirs []string) ([]*Profile, error) {
	profiles := make([]*Profile, 0, len(dirs))
	for _, dir := range dirs {
		p, err := l.Load(ctx, dir)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// Load reads the profile rooted at dir. Control files are read in lexical
// order and the digest covers profile.yml and every control file.
func (l *Loader) Load(ctx context.Context, dir string) (*Profile, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile path: %w", err)
	}

	metaPath := filepath.Join(dir, constants.ProfileFilename)
	data, err := afero.ReadFile(l.fs, metaPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingMetadata, metaPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", metaPath, err)
	}

	p := &Profile{Dir: dir}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidProfile, metaPath, err)
	}
	if p.Name == "" {
		return nil, fmt.Errorf("%w: %s: name is required", ErrInvalidProfile, metaPath)
	}
	if p.Version != "" {
		v, err := semver.ParseTolerant(p.Version)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: version %q: %w", ErrInvalidProfile, metaPath, p.Version, err)
		}
		p.Version = v.String()
	}

	digest := xxhash.New()
	_, _ = digest.Write(data)

	files, err := l.controlFiles(dir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string)
	for _, file := range files {
		content, err := afero.ReadFile(l.fs, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		_, _ = digest.Write(content)

		rules, err := l.parseControls(p.Name, file, content)
		if err != nil {
			return nil, err
		}
		for _, r := range rules {
			if prev, dup := seen[r.ID]; dup {
				return nil, fmt.Errorf("%w: %s: control %q already defined in %s", ErrInvalidControl, r.SourceLocation, r.ID, prev)
			}
			seen[r.ID] = r.SourceLocation.String()
		}
		p.Rules = append(p.Rules, rules...)
	}
	p.Digest = fmt.Sprintf("%016x", digest.Sum64())

	logging.Get(ctx).Debug().
		Str("profile_id", p.Name).
		Int("files", len(files)).
		Int("controls", len(p.Rules)).
		Msg("profile loaded")

	return p, nil
}

func (l *Loader) controlFiles(dir string) ([]string, error) {
	fsys := afero.NewIOFS(afero.NewBasePathFs(l.fs, dir))
	matches, err := doublestar.Glob(fsys, controlsPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list controls in %s: %w", dir, err)
	}
	sort.Strings(matches)

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		files = append(files, filepath.Join(dir, filepath.FromSlash(m)))
	}
	return files, nil
}
