package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/skillflow/types"
)

// Store 持久化层接口。
type Store interface {
	// SaveExecution 保存一条技能执行记录。
	SaveExecution(ctx context.Context, exec *types.SkillExecution) error
	// SaveUsage 保存一条技能使用记录。
	SaveUsage(ctx context.Context, rec *types.SkillUsageRecord) error
	// RecentExecutions 返回指定技能最近的执行记录，时间倒序。
	RecentExecutions(ctx context.Context, skillName string, limit int) ([]types.SkillExecution, error)
	// UsageByUser 返回指定用户的使用记录，时间倒序。
	UsageByUser(ctx context.Context, userID string, limit int) ([]types.SkillUsageRecord, error)
	// PurgeBefore 删除指定时间之前的所有记录，返回删除条数。
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// Close 释放底层资源。
	Close() error
}

// MemoryStore 纯内存实现，进程退出即丢失，用于开发与测试。
type MemoryStore struct {
	mu         sync.RWMutex
	executions []types.SkillExecution
	usage      []types.SkillUsageRecord
}

// NewMemoryStore 创建内存存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveExecution(_ context.Context, exec *types.SkillExecution) error {
	if exec == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions = append(s.executions, *exec)
	return nil
}

func (s *MemoryStore) SaveUsage(_ context.Context, rec *types.SkillUsageRecord) error {
	if rec == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = append(s.usage, *rec)
	return nil
}

func (s *MemoryStore) RecentExecutions(_ context.Context, skillName string, limit int) ([]types.SkillExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.SkillExecution
	for i := len(s.executions) - 1; i >= 0; i-- {
		if skillName != "" && s.executions[i].SkillName != skillName {
			continue
		}
		out = append(out, s.executions[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) UsageByUser(_ context.Context, userID string, limit int) ([]types.SkillUsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.SkillUsageRecord
	for i := len(s.usage) - 1; i >= 0; i-- {
		if userID != "" && s.usage[i].UserID != userID {
			continue
		}
		out = append(out, s.usage[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64

	kept := s.executions[:0]
	for _, e := range s.executions {
		if e.StartedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.executions = kept

	keptUsage := s.usage[:0]
	for _, u := range s.usage {
		if u.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		keptUsage = append(keptUsage, u)
	}
	s.usage = keptUsage

	return removed, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
