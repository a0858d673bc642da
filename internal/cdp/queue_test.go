package cdp

import (
	"sync"
	"testing"
	"time"
)

func TestQueue_FIFO(t *testing.T) {
	t.Parallel()

	q := newQueue[int]()
	for i := range 100 {
		q.Push(i)
	}
	if q.Len() != 100 {
		t.Fatalf("expected 100 items, got %d", q.Len())
	}
	for i := range 100 {
		v, ok := q.Pop()
		if !ok || v != i {
			t.Fatalf("expected %d, got %d (%v)", i, v, ok)
		}
	}
}

func TestQueue_PopBlocksUntilPush(t *testing.T) {
	t.Parallel()

	q := newQueue[string]()
	got := make(chan string, 1)
	go func() {
		v, _ := q.Pop()
		got <- v
	}()

	select {
	case <-got:
		t.Fatal("pop returned before push")
	case <-time.After(20 * time.Millisecond):
	}

	q.Push("x")
	select {
	case v := <-got:
		if v != "x" {
			t.Errorf("expected x, got %q", v)
		}
	case <-time.After(time.Second):
		t.Fatal("pop did not wake")
	}
}

func TestQueue_CloseDrains(t *testing.T) {
	t.Parallel()

	q := newQueue[int]()
	q.Push(1)
	q.Push(2)
	q.Close()
	q.Close()

	if q.Push(3) {
		t.Error("push after close should fail")
	}
	for _, want := range []int{1, 2} {
		if v, ok := q.Pop(); !ok || v != want {
			t.Errorf("expected %d, got %d (%v)", want, v, ok)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("expected closed and drained queue")
	}
}

func TestQueue_ConcurrentPushers(t *testing.T) {
	t.Parallel()

	q := newQueue[int]()
	var wg sync.WaitGroup
	for p := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				q.Push(p*100 + i)
			}
		}()
	}

	done := make(chan int)
	go func() {
		n := 0
		for {
			if _, ok := q.Pop(); !ok {
				done <- n
				return
			}
			n++
		}
	}()

	wg.Wait()
	q.Close()
	if n := <-done; n != 800 {
		t.Errorf("expected 800 items, got %d", n)
	}
}
