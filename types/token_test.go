package types

import "testing"

func TestEstimateTokenizerCJKAware(t *testing.T) {
	tok := NewEstimateTokenizer()

	if got := tok.CountTokens(""); got != 0 {
		t.Fatalf("empty text should be 0 tokens, got %d", got)
	}

	// 每个汉字约一个 token
	cjk := tok.CountTokens("为什么天空是蓝色的")
	if cjk < 8 {
		t.Fatalf("expected at least 8 tokens for 9 Han runes, got %d", cjk)
	}

	// 英文约 4 字符一个 token
	en := tok.CountTokens("why is the sky blue")
	if en < 3 || en > 8 {
		t.Fatalf("unexpected english estimate: %d", en)
	}
}

func TestEstimateTokenizerMessages(t *testing.T) {
	tok := NewEstimateTokenizer()
	msgs := []Message{
		NewUserMessage("讲个故事"),
		NewAssistantMessage("好的，让我想想"),
	}

	total := tok.CountMessagesTokens(msgs)
	if total != tok.CountMessageTokens(msgs[0])+tok.CountMessageTokens(msgs[1]) {
		t.Fatalf("messages total should equal sum of parts")
	}
	if total <= 0 {
		t.Fatalf("expected positive token count")
	}
}
