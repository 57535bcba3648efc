package daemon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSchedulerScheduleEvery(t *testing.T) {
	t.Run("returns job id for valid interval", func(t *testing.T) {
		s, err := NewScheduler()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		id, err := s.ScheduleEvery("periodic-deploy", 10*time.Second, func() {})
		require.NoError(t, err)
		require.NotEmpty(t, id)
	})

	t.Run("rejects non-positive interval", func(t *testing.T) {
		s, err := NewScheduler()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		_, err = s.ScheduleEvery("periodic-deploy", 0, func() {})
		require.Error(t, err)
	})
}

func TestSchedulerScheduleJittered(t *testing.T) {
	t.Run("returns job id with jitter", func(t *testing.T) {
		s, err := NewScheduler()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		id, err := s.ScheduleJittered("periodic-deploy", time.Hour, 5*time.Minute, func() {})
		require.NoError(t, err)
		require.NotEmpty(t, id)
	})

	t.Run("zero jitter behaves like a fixed interval", func(t *testing.T) {
		s, err := NewScheduler()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		id, err := s.ScheduleJittered("periodic-deploy", time.Hour, 0, func() {})
		require.NoError(t, err)
		require.NotEmpty(t, id)
	})

	t.Run("rejects non-positive interval", func(t *testing.T) {
		s, err := NewScheduler()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		_, err = s.ScheduleJittered("periodic-deploy", 0, time.Minute, func() {})
		require.Error(t, err)
	})
}

func TestSchedulerScheduleAt(t *testing.T) {
	t.Run("returns job id for future time", func(t *testing.T) {
		s, err := NewScheduler()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		id, err := s.ScheduleAt("publish-posts/ica.md", time.Now().Add(time.Hour), func() {})
		require.NoError(t, err)
		require.NotEmpty(t, id)
	})

	t.Run("rejects past time", func(t *testing.T) {
		s, err := NewScheduler()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		_, err = s.ScheduleAt("publish-posts/ica.md", time.Now().Add(-time.Minute), func() {})
		require.Error(t, err)
	})
}

func TestSchedulerRemoveJob(t *testing.T) {
	t.Run("removes a scheduled job", func(t *testing.T) {
		s, err := NewScheduler()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		id, err := s.ScheduleAt("publish-posts/ica.md", time.Now().Add(time.Hour), func() {})
		require.NoError(t, err)
		require.NoError(t, s.RemoveJob(id))
	})

	t.Run("rejects malformed id", func(t *testing.T) {
		s, err := NewScheduler()
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Stop() })

		require.Error(t, s.RemoveJob("not-a-uuid"))
	})
}
