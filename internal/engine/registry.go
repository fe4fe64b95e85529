package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"exec-engine/internal/execution"
	"exec-engine/internal/order"
)

// ErrAlreadyRegistered 表示订单号重复注册。
var ErrAlreadyRegistered = errors.New("order already registered")

// Entry 绑定订单与其执行状态，并携带该订单的互斥锁。
// 多字段的状态更新不是原子的，同一订单的步骤必须在时间上互斥；
// 不同订单各持各的锁，互不竞争。
type Entry struct {
	Order *order.Order
	State *execution.State

	mu sync.Mutex
}

// TryLock 尝试获取该订单的步骤锁，上一步未结束时返回 false。
func (e *Entry) TryLock() bool {
	return e.mu.TryLock()
}

// Unlock 释放步骤锁。
func (e *Entry) Unlock() {
	e.mu.Unlock()
}

// Registry 持有全部活跃订单，是引擎唯一的共享可变资源。
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewRegistry 创建空的订单注册表。
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
	}
}

// Register 为订单创建执行状态并登记，订单号已存在时失败。
func (r *Registry) Register(o *order.Order, arrivalPrice decimal.Decimal, now time.Time) (*Entry, error) {
	if o == nil || o.ID == "" {
		return nil, errors.New("订单及其编号不能为空")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[o.ID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRegistered, o.ID)
	}

	entry := &Entry{
		Order: o,
		State: execution.NewState(o, arrivalPrice, now),
	}
	r.entries[o.ID] = entry
	return entry, nil
}

// Reinstate 把带有既有状态的条目重新挂回注册表，重试恢复时使用。
// 已有部分成交保持不变。
func (r *Registry) Reinstate(entry *Entry) error {
	if entry == nil || entry.Order == nil {
		return errors.New("条目不能为空")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[entry.Order.ID]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, entry.Order.ID)
	}

	r.entries[entry.Order.ID] = entry
	return nil
}

// Get 返回订单对应的条目。
func (r *Registry) Get(orderID string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[orderID]
	return entry, ok
}

// Remove 摘除订单，不存在时为空操作。进行中的步骤仍会完成并产生自己的成交。
func (r *Registry) Remove(orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, orderID)
}

// ListActive 返回当前活跃订单号的快照。
func (r *Registry) ListActive() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// Len 返回活跃订单数量。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// States 在各条目锁内拷贝全部执行状态，供监控读取。
func (r *Registry) States() []execution.State {
	r.mu.RLock()
	entries := make([]*Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	states := make([]execution.State, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		states = append(states, entry.State.Snapshot())
		entry.mu.Unlock()
	}
	return states
}
