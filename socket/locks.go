package socket

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultLockTTL is how long a soft table reservation survives without being
// converted into a committed order or explicitly released.
const DefaultLockTTL = 5 * time.Minute

// TableLock is the ephemeral, advisory reservation of a table by one waiter.
// It lives in process memory only; the persisted Table.status stays the sole
// authority for occupancy.
type TableLock struct {
	TableID    string    `json:"tableId"`
	TableName  string    `json:"tableName,omitempty"`
	WaiterID   string    `json:"waiterId"`
	WaiterName string    `json:"waiterName,omitempty"`
	Token      string    `json:"-"`
	AcquiredAt time.Time `json:"acquiredAt"`
	ExpiresAt  time.Time `json:"expiresAt"`

	timer *time.Timer
}

// TableLockManager keeps at most one live lock per table id and expires each
// lock exactly once. The expiry callback runs outside the manager lock.
type TableLockManager struct {
	mu       sync.Mutex
	locks    map[string]*TableLock
	ttl      time.Duration
	onExpire func(lock *TableLock)
}

func NewTableLockManager(ttl time.Duration, onExpire func(lock *TableLock)) *TableLockManager {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &TableLockManager{
		locks:    make(map[string]*TableLock),
		ttl:      ttl,
		onExpire: onExpire,
	}
}

// Acquire reserves a table for a holder. A lock already held by the same
// waiter is refreshed; a lock held by anyone else is returned as the
// conflicting holder.
func (m *TableLockManager) Acquire(tableID, tableName, waiterID, waiterName string) (*TableLock, *TableLock) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.locks[tableID]; ok {
		if cur.WaiterID != waiterID {
			return nil, cur
		}
		cur.timer.Stop()
	}

	lock := &TableLock{
		TableID:    tableID,
		TableName:  tableName,
		WaiterID:   waiterID,
		WaiterName: waiterName,
		Token:      uuid.NewString(),
		AcquiredAt: time.Now(),
		ExpiresAt:  time.Now().Add(m.ttl),
	}
	token := lock.Token
	lock.timer = time.AfterFunc(m.ttl, func() { m.expire(tableID, token) })
	m.locks[tableID] = lock
	return lock, nil
}

// expire drops a lock on timeout. The token check guarantees a stale timer
// never unlocks a newer lock on the same table.
func (m *TableLockManager) expire(tableID, token string) {
	m.mu.Lock()
	cur, ok := m.locks[tableID]
	if !ok || cur.Token != token {
		m.mu.Unlock()
		return
	}
	delete(m.locks, tableID)
	m.mu.Unlock()

	if m.onExpire != nil {
		m.onExpire(cur)
	}
}

// Release drops the lock if the caller is its current holder. Anyone else's
// release request is a no-op.
func (m *TableLockManager) Release(tableID, waiterID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.locks[tableID]
	if !ok || cur.WaiterID != waiterID {
		return false
	}
	cur.timer.Stop()
	delete(m.locks, tableID)
	return true
}

// ForceRelease drops any lock on the table regardless of holder. Used when
// the reservation is superseded by a durably committed order.
func (m *TableLockManager) ForceRelease(tableID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.locks[tableID]
	if !ok {
		return false
	}
	cur.timer.Stop()
	delete(m.locks, tableID)
	return true
}

// ReleaseByHolder drops every lock a waiter holds (socket disconnect) and
// returns the freed table ids.
func (m *TableLockManager) ReleaseByHolder(waiterID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var freed []string
	for id, lock := range m.locks {
		if lock.WaiterID == waiterID {
			lock.timer.Stop()
			delete(m.locks, id)
			freed = append(freed, id)
		}
	}
	return freed
}

// Get returns the current lock for a table, or nil.
func (m *TableLockManager) Get(tableID string) *TableLock {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locks[tableID]
}

// Snapshot lists all live locks, for the initial_state handshake and the
// REST inspection endpoint.
func (m *TableLockManager) Snapshot() []*TableLock {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*TableLock, 0, len(m.locks))
	for _, lock := range m.locks {
		out = append(out, lock)
	}
	return out
}

// Shutdown stops all pending timers.
func (m *TableLockManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, lock := range m.locks {
		lock.timer.Stop()
		delete(m.locks, id)
	}
}
