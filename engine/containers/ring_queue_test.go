package containers

import (
	"slices"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestRingQueueEnqueueDequeue(t *testing.T) {
	q := NewRingQueue[int](3)
	if _, err := q.Dequeue(); !errors.Is(err, ErrQueueEmpty) {
		t.Fatalf("dequeue on empty queue returned %v", err)
	}
	for i := 1; i <= 3; i++ {
		if err := q.Enqueue(i); err != nil {
			t.Fatal(err)
		}
	}
	if err := q.Enqueue(4); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("enqueue on full queue returned %v", err)
	}
	if v, _ := q.Peek(); v != 1 || q.Len() != 3 {
		t.Fatalf("peek %d, len %d", v, q.Len())
	}
	for want := 1; want <= 3; want++ {
		v, err := q.Dequeue()
		if err != nil || v != want {
			t.Fatalf("dequeue gave %d, %v; want %d", v, err, want)
		}
	}
	if !q.IsEmpty() {
		t.Fatal("queue not empty")
	}
}

func TestRingQueuePushDropsOldest(t *testing.T) {
	q := NewRingQueue[int](3)
	for i := 1; i <= 5; i++ {
		q.Push(i)
	}
	var got []int
	q.Each(func(v int) { got = append(got, v) })
	if !slices.Equal(got, []int{3, 4, 5}) {
		t.Fatalf("queue holds %v", got)
	}
	if !q.IsFull() {
		t.Fatal("queue should be full")
	}
}
