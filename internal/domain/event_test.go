package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLifecycle(t *testing.T) {
	now := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	ev := &Evenement{Status: EventDraft}

	require.NoError(t, ev.Publish(now))
	assert.Equal(t, EventPublished, ev.Status)
	require.NotNil(t, ev.PublishedAt)
	assert.Equal(t, now, *ev.PublishedAt)

	// Publishing again from PUBLISHED is a state error.
	assert.True(t, IsState(ev.Publish(now)))

	require.NoError(t, ev.Close(now.Add(time.Hour)))
	assert.Equal(t, EventFull, ev.Status)
	require.NotNil(t, ev.FullAt)

	// Close is only reachable from PUBLISHED.
	assert.True(t, IsState(ev.Close(now)))

	ev.Reopen()
	assert.Equal(t, EventPublished, ev.Status)

	require.NoError(t, ev.CancelEvent(now.Add(2*time.Hour)))
	assert.Equal(t, EventCancelled, ev.Status)
	require.NotNil(t, ev.CancelledAt)
	assert.True(t, IsState(ev.CancelEvent(now)))

	// Republish after cancellation; published_at keeps its first value.
	firstPublished := *ev.PublishedAt
	require.NoError(t, ev.Publish(now.Add(3*time.Hour)))
	assert.Equal(t, firstPublished, *ev.PublishedAt)
}

func TestEventCapacity(t *testing.T) {
	now := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	two := 2
	ev := &Evenement{Status: EventPublished, Capacity: &two}

	// First two registrants fit; the second one fills the event.
	require.NoError(t, ev.AdmitRegistration(0, now))
	ev.SettleAfterRegistration(1, now)
	assert.Equal(t, EventPublished, ev.Status)

	require.NoError(t, ev.AdmitRegistration(1, now))
	ev.SettleAfterRegistration(2, now)
	assert.Equal(t, EventFull, ev.Status)
	require.NotNil(t, ev.FullAt)

	// A third attempt is rejected by the closed state.
	assert.True(t, IsState(ev.AdmitRegistration(2, now)))

	// Freeing one slot reopens registration.
	ev.Reopen()
	assert.Equal(t, EventPublished, ev.Status)
	require.NoError(t, ev.AdmitRegistration(1, now))
}

func TestAdmitRegistrationDiscoversFull(t *testing.T) {
	now := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	one := 1
	ev := &Evenement{Status: EventPublished, Capacity: &one}

	// Capacity already reached: the attempt is rejected AND the
	// discovery itself closes the event.
	err := ev.AdmitRegistration(1, now)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, EventFull, ev.Status)
	assert.NotNil(t, ev.FullAt)
}

func TestUnlimitedCapacity(t *testing.T) {
	now := time.Now()
	ev := &Evenement{Status: EventPublished}

	require.NoError(t, ev.AdmitRegistration(10_000, now))
	ev.SettleAfterRegistration(10_001, now)
	assert.Equal(t, EventPublished, ev.Status)
}
