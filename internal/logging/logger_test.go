package logging

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_WithoutLogger(t *testing.T) {
	t.Parallel()

	logger := Get(context.Background())

	require.NotNil(t, logger)
	// When no logger is attached, zerolog.Ctx returns a disabled logger
	require.Equal(t, zerolog.Disabled, logger.GetLevel())
}

func TestNew_WithCustomWriter(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	ctx, err := New(context.Background(), nil, Config{
		Writer: &buf,
		RunID:  "run-1",
		Level:  InfoLevel,
	})
	require.NoError(t, err)

	logger := Get(ctx)
	assert.Equal(t, InfoLevel, logger.GetLevel())

	logger.Info().Str("rule_id", "ssh-01").Msg("rule added")
	out := buf.String()
	assert.Contains(t, out, `"run_id":"run-1"`)
	assert.Contains(t, out, `"rule_id":"ssh-01"`)
	assert.Contains(t, out, "rule added")
}

func TestNew_LevelFilters(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	ctx, err := New(context.Background(), nil, Config{Writer: &buf, Level: WarnLevel})
	require.NoError(t, err)

	Get(ctx).Info().Msg("hidden")
	Get(ctx).Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_NoWriterNoFilesystem_ReturnsError(t *testing.T) {
	t.Parallel()

	ctx, err := New(context.Background(), nil, Config{Level: InfoLevel})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "filesystem required when no writer provided")
	assert.Nil(t, ctx)
}

func TestNew_ExplicitPathCreatesDirectory(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	path := filepath.Join(t.TempDir(), "logs", "gauntlet.log")

	ctx, err := New(context.Background(), fs, Config{Path: path, Level: InfoLevel})
	require.NoError(t, err)
	require.NotNil(t, ctx)

	exists, err := afero.DirExists(fs, filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    zerolog.Level
		wantErr bool
	}{
		{name: "empty defaults to info", input: "", want: InfoLevel},
		{name: "debug", input: "debug", want: DebugLevel},
		{name: "warn", input: "warn", want: WarnLevel},
		{name: "invalid", input: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
