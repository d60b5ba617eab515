package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wizzomafizzo/gauntlet/internal/config"
	"github.com/wizzomafizzo/gauntlet/internal/core/engine/compiler"
	"github.com/wizzomafizzo/gauntlet/internal/profile"
	"github.com/wizzomafizzo/gauntlet/internal/report"
	"github.com/wizzomafizzo/gauntlet/internal/testutil"
)

func TestMain(m *testing.M) {
	testutil.VerifyTestMain(m)
}

const controls = `controls:
  - id: home-set
    impact: 0.7
    checks:
      - describe: {env: HOME}
        should: [{matcher: exist}]
  - id: motd
    checks:
      - describe: {file: /etc/motd}
        should: [{its: content, matcher: contain, value: Welcome}]
  - id: registry
    checks:
      - describe: {registry_key: HKLM}
        should: [{matcher: exist}]
`

func newFS(t *testing.T, motd string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/p/profile.yml", []byte("name: baseline\nversion: 1.0.0\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/p/controls/all.yml", []byte(controls), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/etc/motd", []byte(motd), 0o644))
	return fs
}

func env(key string) (string, bool) {
	if key == "HOME" {
		return "/home/ci", true
	}
	return "", false
}

func newApp(t *testing.T, fs afero.Fs, conf *config.Config) (*App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return New(conf, WithFS(fs), WithStdout(&out), WithLookupEnv(env), WithVersion("test"), WithRunID("run-1")), &out
}

func TestExecJSON(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.NewTestContext(t)

	conf := config.Default()
	conf.Format = "json"
	a, out := newApp(t, newFS(t, "Welcome aboard\n"), conf)

	status, err := a.Exec(ctx, []string{"/p"})
	require.NoError(t, err)
	assert.Equal(t, 0, status)

	var got report.Output
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "test", got.Version)
	assert.Equal(t, "run-1", got.RunID)
	require.NotNil(t, got.Platform)
	require.Len(t, got.Profiles, 1)
	assert.Equal(t, "baseline", got.Profiles[0].Name)
	assert.Len(t, got.Profiles[0].Digest, 16)

	statuses := map[string]string{}
	for _, c := range got.Profiles[0].Controls {
		statuses[c.ID] = c.Status
	}
	assert.Equal(t, map[string]string{"home-set": "passed", "motd": "passed", "registry": "skipped"}, statuses)
}

func TestExecFailureStatus(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.NewTestContext(t)

	a, out := newApp(t, newFS(t, "Go away\n"), nil)

	status, err := a.Exec(ctx, []string{"/p"})
	require.NoError(t, err)
	assert.Equal(t, 1, status)
	assert.Contains(t, out.String(), "motd: File /etc/motd content should contain \"Welcome\"")
	assert.Contains(t, out.String(), "Resource `registry_key` is not supported on this platform.")
	assert.Contains(t, out.String(), "1 successful control, 1 control failure, 1 control skipped")
}

func TestExecWritesOutputFileAndMetrics(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.NewTestContext(t)

	fs := newFS(t, "Welcome\n")
	conf := config.Default()
	conf.Format = "json-min"
	conf.Output = "/out/report.json"
	a, out := newApp(t, fs, conf)

	status, err := a.Exec(ctx, []string{"/p"})
	require.NoError(t, err)
	assert.Equal(t, 0, status)
	assert.Empty(t, out.String())

	data, err := afero.ReadFile(fs, "/out/report.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"motd"`)
}

func TestExecErrors(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.NewTestContext(t)

	a, _ := newApp(t, afero.NewMemMapFs(), nil)
	_, err := a.Exec(ctx, []string{"/missing"})
	assert.ErrorContains(t, err, "failed to load profiles")

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/p/profile.yml", []byte("name: x\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/p/controls/a.yml",
		[]byte("controls:\n  - id: a\n    checks:\n      - its: {env: HOME}\n"), 0o644))
	a, _ = newApp(t, fs, nil)
	_, err = a.Exec(ctx, []string{"/p"})
	require.ErrorIs(t, err, compiler.ErrUnknownDirective)
	assert.Contains(t, err.Error(), `"its"`)
}

func TestCheck(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.NewTestContext(t)

	a, out := newApp(t, newFS(t, "Welcome\n"), nil)
	results, err := a.Check(ctx, []string{"/p", "/p"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 3, results[0].Controls)
	assert.Equal(t, 3, results[0].Groups)
	assert.Equal(t, results[0], results[1], "reset keeps profiles independent")
	assert.Contains(t, results[0].String(), "baseline 1.0.0: 3 controls, 3 test groups")
	assert.Empty(t, out.String())
}

func TestResolveDirs(t *testing.T) {
	t.Parallel()

	a, _ := newApp(t, newFS(t, ""), nil)

	dirs, err := a.ResolveDirs([]string{"/a", "/b"}, "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b"}, dirs)

	dirs, err = a.ResolveDirs(nil, "/p/controls")
	require.NoError(t, err)
	assert.Equal(t, []string{"/p"}, dirs)

	_, err = a.ResolveDirs(nil, "/etc")
	assert.ErrorIs(t, err, profile.ErrNoProfile)
}

func TestFormats(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "cli\njson\njson-min\njson-rspec\n", Formats())
}
