package domain

import "time"

// Publish moves the event to PUBLISHED. Only DRAFT and CANCELLED events can
// be published; published_at is stamped on the first publication only.
func (e *Evenement) Publish(now time.Time) error {
	if e.Status != EventDraft && e.Status != EventCancelled {
		return BadState("event already published or full")
	}

	e.Status = EventPublished
	if e.PublishedAt == nil {
		t := now
		e.PublishedAt = &t
	}

	return nil
}

// CancelEvent moves any non-cancelled event to CANCELLED and stamps
// cancelled_at once.
func (e *Evenement) CancelEvent(now time.Time) error {
	if e.Status == EventCancelled {
		return BadState("event already cancelled")
	}

	e.Status = EventCancelled
	if e.CancelledAt == nil {
		t := now
		e.CancelledAt = &t
	}

	return nil
}

// Close marks a published event full, stamping full_at once.
func (e *Evenement) Close(now time.Time) error {
	if e.Status != EventPublished {
		return BadState("only a published event can be closed")
	}

	e.markFull(now)
	return nil
}

func (e *Evenement) markFull(now time.Time) {
	e.Status = EventFull
	if e.FullAt == nil {
		t := now
		e.FullAt = &t
	}
}

// Reopen unconditionally returns the event to PUBLISHED. No timestamp is
// written.
func (e *Evenement) Reopen() {
	e.Status = EventPublished
}

// CapacityReached reports whether count registrations exhaust the optional
// capacity.
func (e *Evenement) CapacityReached(count int) bool {
	return e.Capacity != nil && count >= *e.Capacity
}

// AdmitRegistration decides whether one more registrant fits an event open
// for sign-up.
func (e *Evenement) AdmitRegistration(currentCount int, now time.Time) error {
	if e.Status != EventPublished {
		return BadState("registrations are closed for this event")
	}

	return e.AdmitCapacity(currentCount, now)
}

// AdmitCapacity applies the capacity check alone (invite acceptance skips
// the status guard). When the capacity turns out to be already reached, the
// discovery itself closes the event: the status flips to FULL even though
// the triggering registration is rejected.
func (e *Evenement) AdmitCapacity(currentCount int, now time.Time) error {
	if e.CapacityReached(currentCount) {
		e.markFull(now)
		return Invalid("event is full")
	}

	return nil
}

// SettleAfterRegistration flips the event to FULL when the post-insert
// registration count reaches capacity.
func (e *Evenement) SettleAfterRegistration(postCount int, now time.Time) {
	if e.CapacityReached(postCount) {
		e.markFull(now)
	}
}
