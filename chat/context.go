package chat

import (
	"context"
	"sync"
	"time"
)

// ContextManager 对话上下文管理器：按(群, 用户)维护滚动对话记录，
// 超过max_context_size对后丢弃最早的消息对，闲置超过expiration后整体过期
type ContextManager struct {
	mu               sync.Mutex
	group_contexts   map[int64]map[int64][]Message
	timestamps       map[int64]map[int64]time.Time
	max_context_size int
	expiration       time.Duration
	now              func() time.Time
}

func NewContextManager(max_context_size int, expiration time.Duration) *ContextManager {
	if max_context_size <= 0 {
		max_context_size = 10
	}
	if expiration <= 0 {
		expiration = 30 * time.Minute
	}
	return &ContextManager{
		group_contexts:   make(map[int64]map[int64][]Message),
		timestamps:       make(map[int64]map[int64]time.Time),
		max_context_size: max_context_size,
		expiration:       expiration,
		now:              time.Now,
	}
}

// GetContext 获取特定用户的对话上下文（副本）；已过期时清空并返回空
func (m *ContextManager) GetContext(group_id, user_id int64) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isExpired(group_id, user_id) {
		m.clear(group_id, user_id)
		return nil
	}
	m.touch(group_id, user_id)
	src := m.group_contexts[group_id][user_id]
	out := make([]Message, len(src))
	copy(out, src)
	return out
}

// AddToContext 添加一组新对话（用户消息与机器人回复）到上下文
func (m *ContextManager) AddToContext(group_id, user_id int64, message, response Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.group_contexts[group_id] == nil {
		m.group_contexts[group_id] = make(map[int64][]Message)
	}
	list := append(m.group_contexts[group_id][user_id], message, response)
	// 保持上下文长度限制（一对两条）
	for len(list) > m.max_context_size*2 {
		list = list[2:]
	}
	m.group_contexts[group_id][user_id] = list
	m.touch(group_id, user_id)
}

// ClearExpired 清理全部过期上下文，返回清理数量
func (m *ContextManager) ClearExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for group_id, users := range m.timestamps {
		for user_id := range users {
			if m.isExpired(group_id, user_id) {
				m.clear(group_id, user_id)
				count++
			}
		}
	}
	return count
}

// CleanupLoop 定期清理过期上下文，阻塞直至ctx取消
func (m *ContextManager) CleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ClearExpired()
		}
	}
}

/* 内部实现，调用方需持有锁 */

func (m *ContextManager) touch(group_id, user_id int64) {
	if m.timestamps[group_id] == nil {
		m.timestamps[group_id] = make(map[int64]time.Time)
	}
	m.timestamps[group_id][user_id] = m.now()
}

func (m *ContextManager) isExpired(group_id, user_id int64) bool {
	last, ok := m.timestamps[group_id][user_id]
	if !ok {
		return false
	}
	return m.now().Sub(last) > m.expiration
}

func (m *ContextManager) clear(group_id, user_id int64) {
	if users, ok := m.group_contexts[group_id]; ok {
		delete(users, user_id)
	}
	if stamps, ok := m.timestamps[group_id]; ok {
		delete(stamps, user_id)
	}
}
