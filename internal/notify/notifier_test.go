package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_Latest_ZeroBeforePublish(t *testing.T) {
	n := New()
	assert.Equal(t, int64(0), n.Latest(1))

	n.Publish(1, 3)
	assert.Equal(t, int64(3), n.Latest(1))
	assert.Equal(t, int64(0), n.Latest(2))
}

func TestNotifier_Publish_NeverRegresses(t *testing.T) {
	n := New()
	n.Publish(1, 5)
	n.Publish(1, 3) // stale publish must not move the version backwards
	assert.Equal(t, int64(5), n.Latest(1))
}

func TestNotifier_WaitForChange_ImmediateWhenAlreadyAdvanced(t *testing.T) {
	n := New()
	n.Publish(1, 2)

	start := time.Now()
	latest, result := n.WaitForChange(context.Background(), 1, 1, 5*time.Second)
	assert.Equal(t, Advanced, result)
	assert.Equal(t, int64(2), latest)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNotifier_WaitForChange_WakesOnPublish(t *testing.T) {
	n := New()

	go func() {
		time.Sleep(50 * time.Millisecond)
		n.Publish(1, 1)
	}()

	start := time.Now()
	latest, result := n.WaitForChange(context.Background(), 1, 0, 5*time.Second)
	assert.Equal(t, Advanced, result)
	assert.Equal(t, int64(1), latest)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNotifier_WaitForChange_Timeout(t *testing.T) {
	n := New()
	n.Publish(1, 4)

	start := time.Now()
	latest, result := n.WaitForChange(context.Background(), 1, 4, 100*time.Millisecond)
	assert.Equal(t, Timeout, result)
	assert.Equal(t, int64(4), latest)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestNotifier_WaitForChange_Cancelled(t *testing.T) {
	n := New()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, result := n.WaitForChange(ctx, 1, 0, 5*time.Second)
	assert.Equal(t, Cancelled, result)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNotifier_WaitForChange_StalePublishKeepsWaiting(t *testing.T) {
	n := New()
	n.Publish(1, 5)

	// A publish at the known version wakes sleepers but must not make
	// the wait report an advance.
	go func() {
		time.Sleep(30 * time.Millisecond)
		n.Publish(1, 5)
	}()

	latest, result := n.WaitForChange(context.Background(), 1, 5, 200*time.Millisecond)
	assert.Equal(t, Timeout, result)
	assert.Equal(t, int64(5), latest)
}

func TestNotifier_Publish_WakesAllWaiters(t *testing.T) {
	n := New()

	const waiters = 10
	results := make([]Result, waiters)
	versions := make([]int64, waiters)

	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			versions[i], results[i] = n.WaitForChange(context.Background(), 1, 0, 5*time.Second)
		}(i)
	}

	// Give the waiters time to go to sleep, then publish once
	time.Sleep(50 * time.Millisecond)
	start := time.Now()
	n.Publish(1, 1)
	wg.Wait()

	require.Less(t, time.Since(start), time.Second, "all waiters should wake within a second")
	for i := 0; i < waiters; i++ {
		assert.Equal(t, Advanced, results[i])
		assert.Equal(t, int64(1), versions[i])
	}
}

func TestNotifier_CrossUserIsolation(t *testing.T) {
	n := New()

	done := make(chan Result, 1)
	go func() {
		_, result := n.WaitForChange(context.Background(), 2, 0, 200*time.Millisecond)
		done <- result
	}()

	// Publishing for user 1 must not wake user 2's waiter
	time.Sleep(30 * time.Millisecond)
	n.Publish(1, 1)

	assert.Equal(t, Timeout, <-done)
	assert.Equal(t, int64(1), n.Latest(1))
	assert.Equal(t, int64(0), n.Latest(2))
}

func TestNotifier_PublishBetweenCheckAndSleepNotLost(t *testing.T) {
	n := New()

	// Hammer the check/sleep boundary: a publisher and a waiter racing
	// repeatedly. Every wait must observe the publish within its
	// deadline; a lost wakeup would surface as a timeout.
	for i := int64(1); i <= 50; i++ {
		done := make(chan struct{})
		go func(v int64) {
			n.Publish(1, v)
			close(done)
		}(i)

		latest, result := n.WaitForChange(context.Background(), 1, i-1, 2*time.Second)
		require.Equal(t, Advanced, result, "iteration %d", i)
		require.GreaterOrEqual(t, latest, i)
		<-done
	}
}
