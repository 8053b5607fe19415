package skills

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/skillflow/types"
)

func TestContextStoreBuildMergeOrder(t *testing.T) {
	s := NewContextStore(nil, 0, zaptest.NewLogger(t))

	s.SetGlobal("scope", "global")
	s.SetGlobal("only_global", true)
	s.SetSession("sess-1", "scope", "session")
	s.SetConversation(7, "scope", "conversation")

	sctx := s.Build(BuildParams{
		UserInput:      "你好",
		CharacterID:    1,
		ConversationID: 7,
		SessionID:      "sess-1",
		ContextData:    map[string]any{"scope": "request"},
	})

	// 请求级覆盖对话级覆盖会话级覆盖全局
	assert.Equal(t, "request", sctx.ContextData["scope"])
	assert.Equal(t, true, sctx.ContextData["only_global"])
	assert.NotEmpty(t, sctx.RequestID)
	assert.False(t, sctx.ExecutionTimestamp.IsZero())

	// SessionData 是快照，不含合并结果
	assert.Equal(t, "session", sctx.SessionData["scope"])
}

func TestContextStoreRequestIDsUnique(t *testing.T) {
	s := NewContextStore(nil, 0, nil)
	a := s.Build(BuildParams{UserInput: "a"})
	b := s.Build(BuildParams{UserInput: "b"})
	assert.NotEqual(t, a.RequestID, b.RequestID)
}

func TestContextStoreSkillHistory(t *testing.T) {
	s := NewContextStore(nil, 0, zaptest.NewLogger(t))

	s.RecordSkillUse(3, types.SkillUse{SkillName: "storytelling", UsedAt: time.Now()})
	s.RecordSkillUse(3, types.SkillUse{SkillName: "deep_conversation", UsedAt: time.Now()})
	s.RecordSkillUse(0, types.SkillUse{SkillName: "ignored"}) // 无对话 ID 丢弃

	sctx := s.Build(BuildParams{UserInput: "继续", ConversationID: 3})
	require.Len(t, sctx.SkillHistory, 2)
	assert.Equal(t, "storytelling", sctx.SkillHistory[0].SkillName)
	assert.Equal(t, "deep_conversation", sctx.SkillHistory[1].SkillName)

	other := s.Build(BuildParams{UserInput: "继续", ConversationID: 4})
	assert.Empty(t, other.SkillHistory)
}

func TestContextStoreTrimHistory(t *testing.T) {
	// 4 字符/token + 每条 4 token 开销：每条 "aaaaaaaa"(8 chars) ≈ 6 token
	s := NewContextStore(types.NewEstimateTokenizer(), 14, zaptest.NewLogger(t))

	history := []types.Message{
		types.NewMessage(types.RoleUser, "aaaaaaaa"),
		types.NewMessage(types.RoleAssistant, "aaaaaaaa"),
		types.NewMessage(types.RoleUser, "aaaaaaaa"),
	}
	sctx := s.Build(BuildParams{UserInput: "next", History: history})

	// 预算只够最新两条
	require.Len(t, sctx.ConversationHistory, 2)
	assert.Equal(t, types.RoleAssistant, sctx.ConversationHistory[0].Role)
}

func TestContextStoreTrimKeepsNewestAlways(t *testing.T) {
	s := NewContextStore(types.NewEstimateTokenizer(), 1, nil)

	history := []types.Message{
		types.NewMessage(types.RoleUser, "早些的消息内容很长很长很长"),
		types.NewMessage(types.RoleUser, "最新消息同样超出预算"),
	}
	sctx := s.Build(BuildParams{UserInput: "x", History: history})
	require.Len(t, sctx.ConversationHistory, 1)
	assert.Equal(t, "最新消息同样超出预算", sctx.ConversationHistory[0].Content)
}

func TestContextStoreClear(t *testing.T) {
	s := NewContextStore(nil, 0, nil)

	s.SetSession("sess", "k", "v")
	s.SetConversation(9, "k", "v")
	s.ClearSession("sess")
	s.ClearConversation(9)

	sctx := s.Build(BuildParams{UserInput: "x", SessionID: "sess", ConversationID: 9})
	assert.NotContains(t, sctx.ContextData, "k")
}

func TestContextStoreCleanupOlderThan(t *testing.T) {
	s := NewContextStore(nil, 0, zaptest.NewLogger(t))

	s.SetSession("old", "k", "v")
	s.SetConversation(1, "k", "v")
	time.Sleep(20 * time.Millisecond)

	removed := s.CleanupOlderThan(5 * time.Millisecond)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, s.CleanupOlderThan(5*time.Millisecond))
}
