package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestScheduler(t *testing.T) *Service {
	t.Helper()
	service := NewService(arbor.NewLogger())
	t.Cleanup(func() {
		_ = service.Stop()
	})
	return service
}

func waitForSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job to run")
	}
}

func TestRegisterJobRejectsInvalidSchedule(t *testing.T) {
	service := newTestScheduler(t)

	err := service.RegisterJob("bad", "not a schedule", "", func() error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")
}

func TestRegisterJobRejectsDuplicateName(t *testing.T) {
	service := newTestScheduler(t)

	require.NoError(t, service.RegisterJob("sweep", "@every 1h", "", func() error { return nil }))

	err := service.RegisterJob("sweep", "@every 2h", "", func() error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestStartAndStop(t *testing.T) {
	service := newTestScheduler(t)

	assert.False(t, service.IsRunning())
	require.NoError(t, service.Start())
	assert.True(t, service.IsRunning())

	err := service.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	require.NoError(t, service.Stop())
	assert.False(t, service.IsRunning())

	// Stopping twice is harmless
	require.NoError(t, service.Stop())
}

func TestJobExecutesOnSchedule(t *testing.T) {
	service := newTestScheduler(t)

	ran := make(chan struct{}, 1)
	require.NoError(t, service.RegisterJob("tick", "@every 1s", "test job", func() error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}))
	require.NoError(t, service.Start())

	waitForSignal(t, ran)

	status := pollStatus(t, service, "tick", func(s jobStatusSnapshot) bool {
		return s.lastRun != nil
	})
	assert.Equal(t, "tick", status.name)
	assert.Equal(t, "@every 1s", status.schedule)
	assert.Equal(t, "test job", status.description)
	assert.Empty(t, status.lastError)
	assert.False(t, status.isRunning)
}

func TestJobFailureRecordedInStatus(t *testing.T) {
	service := newTestScheduler(t)

	ran := make(chan struct{}, 1)
	require.NoError(t, service.RegisterJob("flaky", "@every 1s", "", func() error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return errors.New("upstream unavailable")
	}))
	require.NoError(t, service.Start())

	waitForSignal(t, ran)

	status := pollStatus(t, service, "flaky", func(s jobStatusSnapshot) bool {
		return s.lastError != ""
	})
	assert.Equal(t, "upstream unavailable", status.lastError)
	assert.NotNil(t, status.lastRun)
}

func TestJobPanicRecorded(t *testing.T) {
	service := newTestScheduler(t)

	ran := make(chan struct{}, 1)
	require.NoError(t, service.RegisterJob("broken", "@every 1s", "", func() error {
		select {
		case ran <- struct{}{}:
		default:
		}
		panic("nil map write")
	}))
	require.NoError(t, service.Start())

	waitForSignal(t, ran)

	status := pollStatus(t, service, "broken", func(s jobStatusSnapshot) bool {
		return s.lastError != ""
	})
	assert.Contains(t, status.lastError, "panic")
	assert.Contains(t, status.lastError, "nil map write")
	assert.False(t, status.isRunning)
}

func TestNextRunPopulatedAfterStart(t *testing.T) {
	service := newTestScheduler(t)

	require.NoError(t, service.RegisterJob("hourly", "@every 1h", "", func() error { return nil }))

	before, err := service.GetJobStatus("hourly")
	require.NoError(t, err)
	assert.Nil(t, before.NextRun)

	require.NoError(t, service.Start())

	after, err := service.GetJobStatus("hourly")
	require.NoError(t, err)
	require.NotNil(t, after.NextRun)
	assert.True(t, after.NextRun.After(time.Now()))
}

func TestGetJobStatusUnknownName(t *testing.T) {
	service := newTestScheduler(t)

	_, err := service.GetJobStatus("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestGetAllJobStatuses(t *testing.T) {
	service := newTestScheduler(t)

	require.NoError(t, service.RegisterJob("one", "@every 1h", "", func() error { return nil }))
	require.NoError(t, service.RegisterJob("two", "@every 2h", "", func() error { return nil }))

	statuses := service.GetAllJobStatuses()
	require.Len(t, statuses, 2)
	assert.Contains(t, statuses, "one")
	assert.Contains(t, statuses, "two")
}

// jobStatusSnapshot mirrors the fields tests assert on, avoiding
// repeated nil checks at call sites.
type jobStatusSnapshot struct {
	name        string
	schedule    string
	description string
	lastRun     *time.Time
	isRunning   bool
	lastError   string
}

// pollStatus waits for the job status to satisfy the condition. Status
// updates land shortly after the handler signals, so a brief poll
// avoids racing the bookkeeping.
func pollStatus(t *testing.T, service *Service, name string, ready func(jobStatusSnapshot) bool) jobStatusSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	var last jobStatusSnapshot
	for time.Now().Before(deadline) {
		status, err := service.GetJobStatus(name)
		require.NoError(t, err)
		last = jobStatusSnapshot{
			name:        status.Name,
			schedule:    status.Schedule,
			description: status.Description,
			lastRun:     status.LastRun,
			isRunning:   status.IsRunning,
			lastError:   status.LastError,
		}
		if ready(last) {
			return last
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %s never reached expected status, last: %+v", name, last)
	return last
}
