package socket

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireAndConflict(t *testing.T) {
	m := NewTableLockManager(time.Minute, nil)
	defer m.Shutdown()

	lock, conflict := m.Acquire("t1", "Stol 1", "w1", "Ali")
	require.NotNil(t, lock)
	assert.Nil(t, conflict)
	assert.Equal(t, "w1", lock.WaiterID)

	// second waiter is refused and told who holds it
	lock2, conflict2 := m.Acquire("t1", "Stol 1", "w2", "Vali")
	assert.Nil(t, lock2)
	require.NotNil(t, conflict2)
	assert.Equal(t, "w1", conflict2.WaiterID)
	assert.Equal(t, "Ali", conflict2.WaiterName)
}

func TestReacquireBySameHolderRefreshes(t *testing.T) {
	m := NewTableLockManager(time.Minute, nil)
	defer m.Shutdown()

	first, _ := m.Acquire("t1", "", "w1", "Ali")
	second, conflict := m.Acquire("t1", "", "w1", "Ali")
	require.NotNil(t, second)
	assert.Nil(t, conflict)
	assert.NotEqual(t, first.Token, second.Token)
	assert.False(t, second.ExpiresAt.Before(first.ExpiresAt))
}

func TestReleaseOnlyByHolder(t *testing.T) {
	m := NewTableLockManager(time.Minute, nil)
	defer m.Shutdown()

	m.Acquire("t1", "", "w1", "Ali")

	assert.False(t, m.Release("t1", "w2"), "non-holder release must be a no-op")
	assert.NotNil(t, m.Get("t1"))

	assert.True(t, m.Release("t1", "w1"))
	assert.Nil(t, m.Get("t1"))

	assert.False(t, m.Release("t1", "w1"), "double release")
}

func TestForceRelease(t *testing.T) {
	m := NewTableLockManager(time.Minute, nil)
	defer m.Shutdown()

	m.Acquire("t1", "", "w1", "Ali")
	assert.True(t, m.ForceRelease("t1"))
	assert.Nil(t, m.Get("t1"))
	assert.False(t, m.ForceRelease("t1"))
}

func TestExpiryFiresExactlyOnce(t *testing.T) {
	var mu sync.Mutex
	var expired []string

	m := NewTableLockManager(20*time.Millisecond, func(lock *TableLock) {
		mu.Lock()
		expired = append(expired, lock.TableID)
		mu.Unlock()
	})
	defer m.Shutdown()

	m.Acquire("t1", "", "w1", "Ali")

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, expired, 1)
	assert.Equal(t, "t1", expired[0])
	assert.Nil(t, m.Get("t1"))
}

func TestStaleTimerNeverDropsNewerLock(t *testing.T) {
	var mu sync.Mutex
	count := 0

	m := NewTableLockManager(30*time.Millisecond, func(lock *TableLock) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	defer m.Shutdown()

	// the refresh replaces the token, so the first timer, even if it had
	// already fired, cannot remove the second lock
	m.Acquire("t1", "", "w1", "Ali")
	time.Sleep(10 * time.Millisecond)
	second, conflict := m.Acquire("t1", "", "w1", "Ali")
	require.Nil(t, conflict)

	time.Sleep(15 * time.Millisecond)
	cur := m.Get("t1")
	require.NotNil(t, cur, "lock must survive the first timer's deadline")
	assert.Equal(t, second.Token, cur.Token)

	time.Sleep(60 * time.Millisecond)
	assert.Nil(t, m.Get("t1"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count, "only the live lock's expiry may fire")
}

func TestManualReleaseCancelsExpiry(t *testing.T) {
	var mu sync.Mutex
	count := 0

	m := NewTableLockManager(20*time.Millisecond, func(lock *TableLock) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	defer m.Shutdown()

	m.Acquire("t1", "", "w1", "Ali")
	require.True(t, m.Release("t1", "w1"))

	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, count)
}

func TestReleaseByHolder(t *testing.T) {
	m := NewTableLockManager(time.Minute, nil)
	defer m.Shutdown()

	m.Acquire("t1", "", "w1", "Ali")
	m.Acquire("t2", "", "w1", "Ali")
	m.Acquire("t3", "", "w2", "Vali")

	freed := m.ReleaseByHolder("w1")
	assert.ElementsMatch(t, []string{"t1", "t2"}, freed)
	assert.Nil(t, m.Get("t1"))
	assert.Nil(t, m.Get("t2"))
	assert.NotNil(t, m.Get("t3"))
}

func TestSnapshot(t *testing.T) {
	m := NewTableLockManager(time.Minute, nil)
	defer m.Shutdown()

	assert.Empty(t, m.Snapshot())

	m.Acquire("t1", "", "w1", "Ali")
	m.Acquire("t2", "", "w2", "Vali")

	snap := m.Snapshot()
	assert.Len(t, snap, 2)
}

func TestConcurrentAcquireSingleWinner(t *testing.T) {
	m := NewTableLockManager(time.Minute, nil)
	defer m.Shutdown()

	const waiters = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			lock, _ := m.Acquire("t1", "", string(rune('a'+id)), "")
			if lock != nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, winners, "exactly one waiter may hold the lock")
	assert.NotNil(t, m.Get("t1"))
}
