package keyedmutex_test

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/7krasov/process-dispatcher/internal/keyedmutex"
	"github.com/stretchr/testify/assert"
)

func TestAcquireSameKeyReturnsSameUnderlyingEntry(t *testing.T) {
	km := keyedmutex.New[uint32]()

	h1 := km.Acquire(1)
	h1.Lock()

	locked := make(chan struct{})
	go func() {
		h2 := km.Acquire(1)
		h2.Lock()
		close(locked)
		h2.Unlock()
	}()

	select {
	case <-locked:
		t.Fatal("second acquire on the same key locked while the first holder was still holding")
	case <-time.After(30 * time.Millisecond):
	}

	h1.Unlock()

	select {
	case <-locked:
	case <-time.After(time.Second):
		t.Fatal("second acquire never locked after the first released")
	}
}

func TestDifferentKeysDoNotContend(t *testing.T) {
	km := keyedmutex.New[uint32]()

	h1 := km.Acquire(1)
	h1.Lock()
	defer h1.Unlock()

	h2 := km.Acquire(2)
	locked := make(chan struct{})
	go func() {
		h2.Lock()
		close(locked)
	}()

	select {
	case <-locked:
	case <-time.After(time.Second):
		t.Fatal("acquiring a different key should not block on key 1's holder")
	}
	h2.Unlock()
}

func TestCriticalSectionsDoNotOverlap(t *testing.T) {
	km := keyedmutex.New[uint32]()
	var counter int64
	var wg sync.WaitGroup

	const n = 50
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			h := km.Acquire(7)
			h.Lock()
			defer h.Unlock()

			cur := atomic.AddInt64(&counter, 1)
			if cur != 1 {
				t.Errorf("overlapping critical section observed, counter=%d", cur)
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt64(&counter, -1)
		}()
	}
	wg.Wait()
}

func TestCleanupReclaimsUnreferencedEntries(t *testing.T) {
	km := keyedmutex.New[uint32]()

	func() {
		h := km.Acquire(99)
		h.Lock()
		h.Unlock()
		// h goes out of scope here.
	}()

	runtime.GC()
	runtime.GC()

	km.Cleanup()
	assert.Equal(t, 0, km.Len())
}

func TestAcquireAfterCleanupCreatesFreshEntry(t *testing.T) {
	km := keyedmutex.New[uint32]()

	h := km.Acquire(1)
	_ = h
	h = nil
	runtime.GC()
	runtime.GC()
	km.Cleanup()

	h2 := km.Acquire(1)
	h2.Lock()
	h2.Unlock()
	assert.Equal(t, 1, km.Len())
}
