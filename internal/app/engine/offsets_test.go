package engine

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderreaderv1 "github.com/muhammadchandra19/matcher/internal/domain/order-reader/v1"
)

func offsetsOf(msgs []orderreaderv1.Message) []int64 {
	offsets := make([]int64, 0, len(msgs))
	for _, msg := range msgs {
		offsets = append(offsets, msg.Offset)
	}
	slices.Sort(offsets)
	return offsets
}

func TestOffsetTracker_CommitsHandledPrefix(t *testing.T) {
	tracker := newOffsetTracker()

	m1 := tracker.track(orderreaderv1.Message{Topic: "orders", Partition: 0, Offset: 1})
	m2 := tracker.track(orderreaderv1.Message{Topic: "orders", Partition: 0, Offset: 2})
	m3 := tracker.track(orderreaderv1.Message{Topic: "orders", Partition: 0, Offset: 3})
	other := tracker.track(orderreaderv1.Message{Topic: "orders", Partition: 1, Offset: 40})

	// 2 finished first, 1 still holds the partition back
	tracker.done(m2)
	assert.Empty(t, tracker.take())

	tracker.done(other)
	assert.Equal(t, []int64{40}, offsetsOf(tracker.take()))

	tracker.done(m1)
	assert.Equal(t, []int64{2}, offsetsOf(tracker.take()))
	assert.Empty(t, tracker.take())

	tracker.done(m3)
	tracker.done(m3)
	assert.Equal(t, []int64{3}, offsetsOf(tracker.take()))
	assert.Empty(t, tracker.pending)
}

func TestOffsetTracker_KeepsNewestPerPartition(t *testing.T) {
	tracker := newOffsetTracker()

	var tracked []*trackedMessage
	for offset := range int64(5) {
		tracked = append(tracked, tracker.track(orderreaderv1.Message{Topic: "orders", Offset: offset}))
	}
	for _, m := range tracked {
		tracker.done(m)
	}

	msgs := tracker.take()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(4), msgs[0].Offset)

	select {
	case <-tracker.notify:
	default:
		t.Fatal("commit not signalled")
	}
}
