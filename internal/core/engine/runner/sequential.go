package runner

import (
	"context"

	"github.com/wizzomafizzo/gauntlet/internal/core/engine/unit"
	"github.com/wizzomafizzo/gauntlet/internal/logging"
)

// SpecRunner executes groups and returns a process status.
type SpecRunner interface {
	RunSpecs(ctx context.Context, groups []*unit.Group, rc *RunContext) int
}

// Sequential runs groups one after another in the given order.
type Sequential struct{}

// RunSpecs returns 0 when no example failed and formatters flushed cleanly,
// 1 otherwise.
func (Sequential) RunSpecs(ctx context.Context, groups []*unit.Group, rc *RunContext) int {
	logger := logging.Get(ctx)

	count := 0
	for _, g := range groups {
		count += g.ExampleCount()
	}

	rc.Start(count)
	rep := rc.Reporter()

	status := 0
	for _, g := range groups {
		if !g.Run(ctx, rep) {
			status = 1
		}
	}

	if err := rc.Finish(); err != nil {
		logger.Error().Err(err).Msg("formatter failed to write output")
		status = 1
	}
	return status
}
