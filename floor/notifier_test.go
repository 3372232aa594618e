package floor

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-floor/models"
)

type recordingSink struct {
	got []models.Notification
}

func (r *recordingSink) Deliver(notifications []models.Notification) {
	r.got = append(r.got, notifications...)
}

func TestNotifier_ComposeAndCommit(t *testing.T) {
	sink := &recordingSink{}
	n := NewNotifier(10, sink)

	matches := []Match{{QueueEntryID: 4, CustomerName: "Jane", Contact: "555-0002", PartySize: 2, TableID: 1, TableNumber: "T1", TableCapacity: 2}}
	alerts := []Alert{{TableID: 2, TableNumber: "T2", OccupiedSince: testNow.Add(-75 * time.Minute), ElapsedMinutes: 75.4}}

	batch := n.Compose("c1", matches, alerts, testNow)
	require.Len(t, batch.Notifications, 2)
	assert.Zero(t, n.Len(), "compose must not record")

	sent := n.Commit(batch)

	require.Len(t, sent, 2)
	seated := sent[0]
	assert.Equal(t, uint64(1), seated.SequenceID)
	assert.Equal(t, models.NotificationCustomerSeated, seated.Type)
	assert.Equal(t, "Jane", seated.Recipient)
	assert.Equal(t, "555-0002", seated.Contact)
	assert.Equal(t, models.PriorityHigh, seated.Priority)
	assert.Equal(t, "Hello Jane, your Table T1 is ready! Please proceed to the host stand.", seated.Message)
	require.NotNil(t, seated.EntryID)
	assert.Equal(t, uint(4), *seated.EntryID)

	alert := sent[1]
	assert.Equal(t, uint64(2), alert.SequenceID)
	assert.Equal(t, models.NotificationStaffAlert, alert.Type)
	assert.Equal(t, "Floor Manager", alert.Recipient)
	assert.Equal(t, models.PriorityMedium, alert.Priority)
	assert.Equal(t, "ALERT: Table T2 has been occupied for 75 minutes. Please check on the guests.", alert.Message)

	assert.Equal(t, sent, sink.got)
	assert.Equal(t, sent, n.Recent(0))
}

func TestNotifier_StaleAlertNotifiedOnce(t *testing.T) {
	n := NewNotifier(10)
	since := testNow.Add(-70 * time.Minute)
	alerts := []Alert{{TableID: 2, TableNumber: "T2", OccupiedSince: since, ElapsedMinutes: 70}}

	first := n.Commit(n.Compose("c1", nil, alerts, testNow))
	second := n.Commit(n.Compose("c2", nil, alerts, testNow.Add(time.Minute)))

	assert.Len(t, first, 1)
	assert.Empty(t, second)

	// the table was freed and occupied again: a new occupancy is alerted
	n.Commit(n.Compose("c3", nil, nil, testNow.Add(2*time.Minute)))
	again := n.Commit(n.Compose("c4", nil, alerts, testNow.Add(3*time.Minute)))
	assert.Len(t, again, 1)
}

func TestNotifier_UncommittedBatchDoesNotSuppress(t *testing.T) {
	n := NewNotifier(10)
	alerts := []Alert{{TableID: 2, TableNumber: "T2", OccupiedSince: testNow.Add(-70 * time.Minute), ElapsedMinutes: 70}}

	_ = n.Compose("failed", nil, alerts, testNow)
	sent := n.Commit(n.Compose("retry", nil, alerts, testNow))

	assert.Len(t, sent, 1)
}

func TestNotifier_RingIsBounded(t *testing.T) {
	n := NewNotifier(3)

	for i := 1; i <= 5; i++ {
		matches := []Match{{QueueEntryID: uint(i), CustomerName: fmt.Sprintf("P%d", i), TableID: uint(i), TableNumber: "T"}}
		n.Commit(n.Compose("c", matches, nil, testNow))
	}

	assert.Equal(t, 3, n.Len())
	assert.Equal(t, uint64(5), n.Sent())

	recent := n.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, []uint64{3, 4, 5}, []uint64{recent[0].SequenceID, recent[1].SequenceID, recent[2].SequenceID})

	last := n.Recent(2)
	assert.Equal(t, []uint64{4, 5}, []uint64{last[0].SequenceID, last[1].SequenceID})
}

func TestNotifier_EmptyCommitSkipsSinks(t *testing.T) {
	calls := 0
	n := NewNotifier(3, SinkFunc(func([]models.Notification) { calls++ }))

	n.Commit(n.Compose("c", nil, nil, testNow))

	assert.Zero(t, calls)
	assert.NotNil(t, n.Recent(0))
}

func TestBatch_Drop(t *testing.T) {
	n := NewNotifier(5)
	matches := []Match{
		{QueueEntryID: 1, CustomerName: "A", TableID: 1, TableNumber: "T1"},
		{QueueEntryID: 2, CustomerName: "B", TableID: 2, TableNumber: "T2"},
	}
	batch := n.Compose("c", matches, nil, testNow)

	batch.Drop(func(m models.Notification) bool { return m.TableID == 1 })

	require.Len(t, batch.Notifications, 1)
	assert.Equal(t, "B", batch.Notifications[0].Recipient)
}
