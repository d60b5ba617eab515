package report

import (
	"time"

	"github.com/wizzomafizzo/gauntlet/internal/core/engine/unit"
)

// Record is a snapshot of one finished example.
type Record struct {
	Err             error
	Description     string
	FullDescription string
	PendingMessage  string
	Metadata        unit.Metadata
	Location        unit.Location
	Status          unit.Status
	Duration        time.Duration
}

// Message returns the failure message, if any.
func (r Record) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// collector accumulates records; formatters embed it.
type collector struct {
	started  time.Time
	records  []Record
	expected int
	duration time.Duration
}

func (c *collector) Start(exampleCount int) {
	c.started = time.Now()
	c.expected = exampleCount
	c.records = nil
	c.duration = 0
}

func (*collector) GroupStarted(*unit.Group)     {}
func (*collector) GroupFinished(*unit.Group)    {}
func (*collector) ExampleStarted(*unit.Example) {}

func (c *collector) ExampleFinished(e *unit.Example) {
	res := e.Result()
	c.records = append(c.records, Record{
		Err:             res.Err,
		Description:     e.Description,
		FullDescription: e.FullDescription,
		PendingMessage:  e.PendingMessage,
		Metadata:        e.Metadata,
		Location:        e.Location,
		Status:          res.Status,
		Duration:        res.Duration,
	})
}

// finish freezes the run duration.
func (c *collector) finish() {
	if !c.started.IsZero() && c.duration == 0 {
		c.duration = time.Since(c.started)
	}
}

func (c *collector) summary() Summary {
	s := Summary{ExampleCount: len(c.records), Duration: c.duration.Seconds()}
	for _, r := range c.records {
		switch r.Status {
		case unit.StatusFailed:
			s.FailureCount++
		case unit.StatusPending:
			s.PendingCount++
		case unit.StatusPassed, unit.StatusNone:
		}
	}
	return s
}

// controlStatus is the aggregated outcome of one control.
type controlStatus struct {
	Metadata unit.Metadata
	Records  []Record
	Status   unit.Status
}

// controls groups records by control id in first-seen order. A control
// fails if any example failed and is skipped if every example is pending.
func (c *collector) controls() []*controlStatus {
	var out []*controlStatus
	byID := map[string]*controlStatus{}
	for _, r := range c.records {
		key := r.Metadata.ProfileID + "\x00" + r.Metadata.ID
		cs, ok := byID[key]
		if !ok {
			cs = &controlStatus{Metadata: r.Metadata, Status: unit.StatusPending}
			byID[key] = cs
			out = append(out, cs)
		}
		cs.Records = append(cs.Records, r)
		switch {
		case r.Status == unit.StatusFailed:
			cs.Status = unit.StatusFailed
		case r.Status == unit.StatusPassed && cs.Status != unit.StatusFailed:
			cs.Status = unit.StatusPassed
		}
	}
	return out
}
