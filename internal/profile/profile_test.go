package profile

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wizzomafizzo/gauntlet/internal/core/engine/compiler"
	"github.com/wizzomafizzo/gauntlet/internal/core/engine/unit"
	"github.com/wizzomafizzo/gauntlet/internal/rule"
	"github.com/wizzomafizzo/gauntlet/internal/testutil"
)

const profileYAML = `name: linux-baseline
title: Linux Baseline
version: v1.2
maintainer: Platform Team
summary: Minimal host checks
`

const controlsYAML = `controls:
  - id: home-set
    impact: 0.7
    title: HOME is set
    desc: Login shells need a home directory
    checks:
      - describe: {env: HOME}
        should:
          - matcher: exist
          - its: value
            matcher: match
            value: "^/"
  - id: hostname
    checks:
      - expect: {file: /etc/hostname}
        should: [{matcher: exist}, {matcher: be_empty, not: true}]
`

func newFS(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func lookup(vars map[string]string) LookupEnvFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestLoadProfile(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.NewTestContext(t)

	fs := newFS(t, map[string]string{
		"/p/profile.yml":               profileYAML,
		"/p/controls/env.yml":          controlsYAML,
		"/p/controls/extra/empty.yaml": "",
		"/p/controls/notes.txt":        "ignored",
	})

	p, err := NewLoader(fs).Load(ctx, "/p")
	require.NoError(t, err)

	assert.Equal(t, "linux-baseline", p.Name)
	assert.Equal(t, "1.2.0", p.Version, "version is normalized")
	assert.Len(t, p.Digest, 16)
	require.Len(t, p.Rules, 2)

	home := p.Rules[0]
	assert.Equal(t, "home-set", home.ID)
	assert.Equal(t, "linux-baseline", home.ProfileID)
	assert.InDelta(t, 0.7, home.Impact, 1e-9)
	assert.Equal(t, unit.Location{Path: "/p/controls/env.yml", Line: 2}, home.SourceLocation)
	assert.Contains(t, home.Code, "id: home-set")
	require.Len(t, home.Checks, 1)
	assert.Equal(t, rule.KindDescribe, home.Checks[0].Kind)
	assert.Equal(t, 7, home.Checks[0].Body.Location.Line)

	hostname := p.Rules[1]
	assert.InDelta(t, defaultImpact, hostname.Impact, 1e-9)
	require.Len(t, hostname.Checks, 1)
	assert.Equal(t, rule.KindExpect, hostname.Checks[0].Kind)
	require.NotNil(t, hostname.Checks[0].Body.Group)
	assert.Equal(t, "File /etc/hostname", hostname.Checks[0].Body.Group.Description)

	rp := p.ToReport()
	assert.Equal(t, "Linux Baseline", rp.Title)
	assert.Equal(t, p.Digest, rp.Digest)
}

func TestLoadDigestChangesWithControls(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.NewTestContext(t)

	a, err := NewLoader(newFS(t, map[string]string{
		"/p/profile.yml":      profileYAML,
		"/p/controls/env.yml": controlsYAML,
	})).Load(ctx, "/p")
	require.NoError(t, err)

	b, err := NewLoader(newFS(t, map[string]string{
		"/p/profile.yml":      profileYAML,
		"/p/controls/env.yml": controlsYAML + "\n# changed\n",
	})).Load(ctx, "/p")
	require.NoError(t, err)

	assert.NotEqual(t, a.Digest, b.Digest)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		files   map[string]string
		wantErr error
		name    string
		msg     string
	}{
		{
			name:    "missing metadata",
			files:   map[string]string{"/p/controls/a.yml": controlsYAML},
			wantErr: ErrMissingMetadata,
		},
		{
			name:    "missing name",
			files:   map[string]string{"/p/profile.yml": "title: x\n"},
			wantErr: ErrInvalidProfile,
			msg:     "name is required",
		},
		{
			name:    "bad version",
			files:   map[string]string{"/p/profile.yml": "name: x\nversion: one\n"},
			wantErr: ErrInvalidProfile,
			msg:     "version",
		},
		{
			name: "missing id",
			files: map[string]string{
				"/p/profile.yml":    "name: x\n",
				"/p/controls/a.yml": "controls:\n  - title: no id\n",
			},
			wantErr: ErrInvalidControl,
			msg:     "/p/controls/a.yml:2: id is required",
		},
		{
			name: "impact out of range",
			files: map[string]string{
				"/p/profile.yml":    "name: x\n",
				"/p/controls/a.yml": "controls:\n  - id: a\n    impact: 2\n",
			},
			wantErr: ErrInvalidControl,
			msg:     "impact",
		},
		{
			name: "duplicate id",
			files: map[string]string{
				"/p/profile.yml":    "name: x\n",
				"/p/controls/a.yml": "controls:\n  - id: a\n",
				"/p/controls/b.yml": "controls:\n  - id: a\n",
			},
			wantErr: ErrInvalidControl,
			msg:     "already defined",
		},
		{
			name: "invalid regex",
			files: map[string]string{
				"/p/profile.yml": "name: x\n",
				"/p/controls/a.yml": "controls:\n  - id: a\n    checks:\n" +
					"      - describe: {env: HOME}\n        should: [{matcher: match, value: \"[\"}]\n",
			},
			wantErr: ErrInvalidControl,
			msg:     "invalid regex",
		},
		{
			name: "no expectations",
			files: map[string]string{
				"/p/profile.yml":    "name: x\n",
				"/p/controls/a.yml": "controls:\n  - id: a\n    checks:\n      - describe: {env: HOME}\n",
			},
			wantErr: ErrInvalidControl,
			msg:     "no should entries",
		},
		{
			name: "two directives",
			files: map[string]string{
				"/p/profile.yml": "name: x\n",
				"/p/controls/a.yml": "controls:\n  - id: a\n    checks:\n" +
					"      - describe: {env: HOME}\n        expect: {env: HOME}\n        should: [{matcher: exist}]\n",
			},
			wantErr: ErrInvalidControl,
			msg:     "both describe and expect",
		},
		{
			name: "expect inside describe_one",
			files: map[string]string{
				"/p/profile.yml": "name: x\n",
				"/p/controls/a.yml": "controls:\n  - id: a\n    checks:\n      - describe_one:\n" +
					"          - expect: {env: HOME}\n            should: [{matcher: exist}]\n",
			},
			wantErr: ErrInvalidControl,
			msg:     "accepts only describe checks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx, _ := testutil.NewTestContext(t)

			_, err := NewLoader(newFS(t, tt.files)).Load(ctx, "/p")
			require.ErrorIs(t, err, tt.wantErr)
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestUnknownDirectivePassesThrough(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.NewTestContext(t)

	fs := newFS(t, map[string]string{
		"/p/profile.yml":    "name: x\n",
		"/p/controls/a.yml": "controls:\n  - id: a\n    checks:\n      - bogus: {env: HOME}\n",
	})
	p, err := NewLoader(fs).Load(ctx, "/p")
	require.NoError(t, err)

	check := p.Rules[0].Checks[0]
	assert.Equal(t, rule.Kind("bogus"), check.Kind)

	_, err = compiler.Compile(ctx, check.Kind, check.Args, check.Body)
	require.ErrorIs(t, err, compiler.ErrUnknownDirective)
	assert.Contains(t, err.Error(), `"bogus"`)
}

func compileAll(ctx context.Context, t *testing.T, r *rule.Rule) []*unit.Group {
	t.Helper()
	var groups []*unit.Group
	for _, c := range r.Checks {
		gs, err := compiler.Compile(ctx, c.Kind, c.Args, c.Body)
		require.NoError(t, err)
		groups = append(groups, gs...)
	}
	return groups
}

func TestChecksExecute(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.NewTestContext(t)

	fs := newFS(t, map[string]string{
		"/p/profile.yml":      profileYAML,
		"/p/controls/env.yml": controlsYAML,
		"/etc/hostname":       "build-01\n",
	})
	p, err := NewLoader(fs, WithLookupEnv(lookup(map[string]string{"HOME": "/home/ci"}))).Load(ctx, "/p")
	require.NoError(t, err)

	home := compileAll(ctx, t, p.Rules[0])
	require.Len(t, home, 1)
	assert.Equal(t, "Environment variable HOME", home[0].Description)
	assert.True(t, home[0].Run(ctx, nil))
	require.Len(t, home[0].Children(), 1)
	assert.Equal(t, "Environment variable HOME value should match /^//",
		home[0].Children()[0].Examples()[0].FullDescription)

	hostname := compileAll(ctx, t, p.Rules[1])
	require.Len(t, hostname, 1)
	assert.True(t, hostname[0].Run(ctx, nil))
}

func TestChecksFailWhenResourceMissing(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.NewTestContext(t)

	fs := newFS(t, map[string]string{
		"/p/profile.yml":      profileYAML,
		"/p/controls/env.yml": controlsYAML,
	})
	p, err := NewLoader(fs, WithLookupEnv(lookup(nil))).Load(ctx, "/p")
	require.NoError(t, err)

	groups := compileAll(ctx, t, p.Rules[1])
	require.Len(t, groups, 1)
	assert.False(t, groups[0].Run(ctx, nil))

	res := groups[0].Examples()[0].Result()
	assert.Equal(t, unit.StatusFailed, res.Status)
	assert.EqualError(t, res.Err, "expectation not met: expected File /etc/hostname to exist")
}

func TestUnsupportedResourceSkips(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.NewTestContext(t)

	fs := newFS(t, map[string]string{
		"/p/profile.yml": "name: x\n",
		"/p/controls/a.yml": "controls:\n  - id: a\n    checks:\n" +
			"      - describe: {registry_key: HKLM\\Software}\n        should: [{matcher: exist}]\n",
	})
	p, err := NewLoader(fs).Load(ctx, "/p")
	require.NoError(t, err)

	groups := compileAll(ctx, t, p.Rules[0])
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Examples(), 1)

	ex := groups[0].Examples()[0]
	assert.Equal(t, "Resource `registry_key` is not supported on this platform.", ex.PendingMessage)
	assert.True(t, groups[0].Run(ctx, nil), "skips are not failures")
	assert.Equal(t, unit.StatusPending, ex.Result().Status)
}

func TestDescribeOneKeepsPassingAlternatives(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.NewTestContext(t)

	fs := newFS(t, map[string]string{
		"/p/profile.yml": "name: x\n",
		"/p/controls/a.yml": `controls:
  - id: os-release
    checks:
      - describe_one:
          - describe: {file: /etc/os-release}
            should: [{matcher: exist}]
          - describe: {file: /usr/lib/os-release}
            should: [{matcher: exist}]
`,
		"/usr/lib/os-release": "ID=debian\n",
	})
	p, err := NewLoader(fs).Load(ctx, "/p")
	require.NoError(t, err)

	check := p.Rules[0].Checks[0]
	require.Equal(t, rule.KindDescribeOne, check.Kind)
	require.Len(t, check.Args, 2)

	groups := compileAll(ctx, t, p.Rules[0])
	require.Len(t, groups, 1)
	assert.Equal(t, "File /usr/lib/os-release", groups[0].Description)
}

func TestFileProperties(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/motd", []byte("hello"), 0o640))
	require.NoError(t, fs.MkdirAll("/var/log", 0o755))
	l := NewLoader(fs)

	tests := []struct {
		want     any
		name     string
		path     string
		property string
		exists   bool
		wantErr  bool
	}{
		{name: "content", path: "/etc/motd", property: "", want: "hello", exists: true},
		{name: "size", path: "/etc/motd", property: "size", want: int64(5), exists: true},
		{name: "mode", path: "/etc/motd", property: "mode", want: "0640", exists: true},
		{name: "type file", path: "/etc/motd", property: "type", want: "file", exists: true},
		{name: "type directory", path: "/var/log", property: "type", want: "directory", exists: true},
		{name: "missing", path: "/nope", property: "content", exists: false},
		{name: "unknown property", path: "/etc/motd", property: "owner", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, exists, err := l.resource("file", tt.path).Property(ctx, tt.property)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownProperty)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.exists, exists)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestEnvProperties(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	l := NewLoader(afero.NewMemMapFs(), WithLookupEnv(lookup(map[string]string{
		"PATH":  "/usr/bin:/bin",
		"EMPTY": "",
	})))

	v, ok, err := l.resource("env", "PATH").Property(ctx, "split")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"/usr/bin", "/bin"}, v)

	v, ok, err = l.resource("env", "EMPTY").Property(ctx, "value")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, v)

	_, ok, err = l.resource("env", "UNSET").Property(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = l.resource("env", "PATH").Property(ctx, "length")
	assert.ErrorIs(t, err, ErrUnknownProperty)
}
