package floor

import (
	"fmt"
	"sync"
	"time"

	"github.com/yeremiapane/restaurant-floor/models"
)

const floorManager = "Floor Manager"

// Sink delivers committed notifications. Implementations must not block for
// long: Deliver runs on the cycle's critical path.
type Sink interface {
	Deliver(notifications []models.Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(notifications []models.Notification)

func (f SinkFunc) Deliver(notifications []models.Notification) { f(notifications) }

type alertKey struct {
	tableID uint
	since   int64
}

// Batch is the set of notifications composed for one cycle, not yet
// committed.
type Batch struct {
	Notifications []models.Notification
	stale         map[alertKey]struct{}
}

// Drop removes every notification for which drop returns true.
func (b *Batch) Drop(drop func(models.Notification) bool) {
	kept := b.Notifications[:0]
	for _, n := range b.Notifications {
		if !drop(n) {
			kept = append(kept, n)
		}
	}
	b.Notifications = kept
}

// Notifier turns matches and alerts into notifications, keeps the most recent
// ones in a fixed-size ring and hands committed ones to its sinks.
//
// A stale occupancy is notified once: later cycles that still see the same
// table occupied since the same instant do not notify staff again.
type Notifier struct {
	mu      sync.Mutex
	seq     uint64
	ring    []models.Notification
	next    int
	full    bool
	alerted map[alertKey]struct{}
	sinks   []Sink
}

func NewNotifier(capacity int, sinks ...Sink) *Notifier {
	if capacity <= 0 {
		capacity = DefaultPolicy().NotificationLogSize
	}
	return &Notifier{
		ring:    make([]models.Notification, capacity),
		alerted: make(map[alertKey]struct{}),
		sinks:   sinks,
	}
}

// AddSink registers another delivery sink.
func (n *Notifier) AddSink(s Sink) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sinks = append(n.sinks, s)
}

// Compose builds the notifications of a cycle without recording anything.
func (n *Notifier) Compose(cycleID string, matches []Match, alerts []Alert, now time.Time) *Batch {
	n.mu.Lock()
	defer n.mu.Unlock()

	batch := &Batch{
		Notifications: make([]models.Notification, 0, len(matches)+len(alerts)),
		stale:         make(map[alertKey]struct{}, len(alerts)),
	}

	for _, m := range matches {
		entryID := m.QueueEntryID
		batch.Notifications = append(batch.Notifications, models.Notification{
			CycleID:   cycleID,
			Type:      models.NotificationCustomerSeated,
			Recipient: m.CustomerName,
			Contact:   m.Contact,
			Message:   fmt.Sprintf("Hello %s, your Table %s is ready! Please proceed to the host stand.", m.CustomerName, m.TableNumber),
			Priority:  models.PriorityHigh,
			TableID:   m.TableID,
			EntryID:   &entryID,
			CreatedAt: now,
		})
	}

	for _, a := range alerts {
		key := alertKey{tableID: a.TableID, since: a.OccupiedSince.UnixNano()}
		batch.stale[key] = struct{}{}
		if _, seen := n.alerted[key]; seen {
			continue
		}
		batch.Notifications = append(batch.Notifications, models.Notification{
			CycleID:   cycleID,
			Type:      models.NotificationStaffAlert,
			Recipient: floorManager,
			Message:   fmt.Sprintf("ALERT: Table %s has been occupied for %.0f minutes. Please check on the guests.", a.TableNumber, a.ElapsedMinutes),
			Priority:  models.PriorityMedium,
			TableID:   a.TableID,
			CreatedAt: now,
		})
	}

	return batch
}

// Commit assigns sequence ids, appends the batch to the log and delivers it.
// It returns the committed notifications.
func (n *Notifier) Commit(batch *Batch) []models.Notification {
	n.mu.Lock()
	committed := make([]models.Notification, 0, len(batch.Notifications))
	for _, notif := range batch.Notifications {
		n.seq++
		notif.SequenceID = n.seq
		n.ring[n.next] = notif
		n.next = (n.next + 1) % len(n.ring)
		if n.next == 0 {
			n.full = true
		}
		committed = append(committed, notif)
	}
	// Only occupancies that are still stale stay remembered.
	n.alerted = batch.stale
	sinks := append([]Sink(nil), n.sinks...)
	n.mu.Unlock()

	if len(committed) > 0 {
		for _, s := range sinks {
			s.Deliver(committed)
		}
	}
	return committed
}

// Recent returns up to limit of the newest notifications, oldest first.
// limit <= 0 returns the whole log.
func (n *Notifier) Recent(limit int) []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	ordered := make([]models.Notification, 0, len(n.ring))
	if n.full {
		ordered = append(ordered, n.ring[n.next:]...)
		ordered = append(ordered, n.ring[:n.next]...)
	} else {
		ordered = append(ordered, n.ring[:n.next]...)
	}

	if limit > 0 && len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}
	return ordered
}

// Len is the number of notifications currently held in the log.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.full {
		return len(n.ring)
	}
	return n.next
}

// Sent is the total number of notifications committed since start.
func (n *Notifier) Sent() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.seq
}
