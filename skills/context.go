package skills

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/skillflow/types"
)

// BuildParams Build 构造执行上下文所需的输入。
type BuildParams struct {
	UserInput      string
	CharacterID    int64
	Character      *types.CharacterProfile
	ConversationID int64
	MessageID      int64
	SessionID      string
	History        []types.Message
	ContextData    map[string]any
}

// conversationState 单个会话在存储中的可变状态。
type conversationState struct {
	data         map[string]any
	skillHistory []types.SkillUse
	lastTouched  time.Time
}

// ContextStore 管理三层作用域的上下文数据（全局 / 会话 / 对话），
// 并负责把原始请求组装为带请求 ID 的 SkillContext。对话历史按
// tokenizer 估算的 token 预算从尾部截断。
type ContextStore struct {
	mu            sync.RWMutex
	global        map[string]any
	sessions      map[string]*conversationState
	conversations map[int64]*conversationState

	tokenizer    types.Tokenizer
	historyLimit int // token 预算，<=0 表示不截断
	logger       *zap.Logger
}

// NewContextStore 构造上下文存储。tokenizer 为 nil 时使用 CJK 估算器。
func NewContextStore(tokenizer types.Tokenizer, historyTokenLimit int, logger *zap.Logger) *ContextStore {
	if tokenizer == nil {
		tokenizer = types.NewEstimateTokenizer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextStore{
		global:        make(map[string]any),
		sessions:      make(map[string]*conversationState),
		conversations: make(map[int64]*conversationState),
		tokenizer:     tokenizer,
		historyLimit:  historyTokenLimit,
		logger:        logger.With(zap.String("component", "context_store")),
	}
}

// Build 组装一次请求的执行上下文。上下文数据按 全局 < 会话 < 对话 <
// 请求级 的顺序合并，后者覆盖前者。
func (s *ContextStore) Build(p BuildParams) *types.SkillContext {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	merged := make(map[string]any, len(s.global)+len(p.ContextData))
	for k, v := range s.global {
		merged[k] = v
	}

	var sessionData map[string]any
	if p.SessionID != "" {
		st := s.sessionLocked(p.SessionID)
		st.lastTouched = now
		for k, v := range st.data {
			merged[k] = v
		}
		sessionData = cloneMap(st.data)
	}

	var history []types.SkillUse
	if p.ConversationID != 0 {
		st := s.conversationLocked(p.ConversationID)
		st.lastTouched = now
		for k, v := range st.data {
			merged[k] = v
		}
		history = append(history, st.skillHistory...)
	}
	for k, v := range p.ContextData {
		merged[k] = v
	}

	return &types.SkillContext{
		ConversationID:      p.ConversationID,
		MessageID:           p.MessageID,
		SessionID:           p.SessionID,
		RequestID:           uuid.NewString(),
		UserInput:           p.UserInput,
		Character:           p.Character,
		CharacterID:         p.CharacterID,
		ConversationHistory: s.trimHistory(p.History),
		SkillHistory:        history,
		ContextData:         merged,
		SessionData:         sessionData,
		ExecutionTimestamp:  now,
	}
}

// trimHistory 从最新消息向前累加 token，超出预算即截断，保证最新
// 消息永远保留。
func (s *ContextStore) trimHistory(history []types.Message) []types.Message {
	if s.historyLimit <= 0 || len(history) == 0 {
		return history
	}
	total := 0
	cut := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		total += s.tokenizer.CountMessageTokens(history[i])
		if total > s.historyLimit && i < len(history)-1 {
			break
		}
		cut = i
	}
	if cut > 0 {
		s.logger.Debug("对话历史按 token 预算截断",
			zap.Int("dropped", cut),
			zap.Int("kept", len(history)-cut))
	}
	return history[cut:]
}

// RecordSkillUse 向对话的技能使用历史追加一条记录。
func (s *ContextStore) RecordSkillUse(conversationID int64, use types.SkillUse) {
	if conversationID == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.conversationLocked(conversationID)
	st.skillHistory = append(st.skillHistory, use)
	st.lastTouched = time.Now()
}

// SetGlobal 写入全局上下文键值。
func (s *ContextStore) SetGlobal(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global[key] = value
}

// SetSession 写入会话级上下文键值。
func (s *ContextStore) SetSession(sessionID, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.sessionLocked(sessionID)
	st.data[key] = value
	st.lastTouched = time.Now()
}

// SetConversation 写入对话级上下文键值。
func (s *ContextStore) SetConversation(conversationID int64, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.conversationLocked(conversationID)
	st.data[key] = value
	st.lastTouched = time.Now()
}

// ClearSession 删除整个会话状态。
func (s *ContextStore) ClearSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// ClearConversation 删除整个对话状态。
func (s *ContextStore) ClearConversation(conversationID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, conversationID)
}

// CleanupOlderThan 清理长时间未触达的会话与对话状态，返回清理条数。
func (s *ContextStore) CleanupOlderThan(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, st := range s.sessions {
		if st.lastTouched.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	for id, st := range s.conversations {
		if st.lastTouched.Before(cutoff) {
			delete(s.conversations, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("清理过期上下文", zap.Int("removed", removed))
	}
	return removed
}

func (s *ContextStore) sessionLocked(id string) *conversationState {
	st, ok := s.sessions[id]
	if !ok {
		st = &conversationState{data: make(map[string]any)}
		s.sessions[id] = st
	}
	return st
}

func (s *ContextStore) conversationLocked(id int64) *conversationState {
	st, ok := s.conversations[id]
	if !ok {
		st = &conversationState{data: make(map[string]any)}
		s.conversations[id] = st
	}
	return st
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
