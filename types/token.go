package types

import (
	"fmt"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer defines the interface for token counting. The context builder
// uses it to bound the conversation-history window by token budget.
type Tokenizer interface {
	// CountTokens counts tokens in a text string.
	CountTokens(text string) int
	// CountMessageTokens counts tokens in a single message.
	CountMessageTokens(msg Message) int
	// CountMessagesTokens counts total tokens in a message slice.
	CountMessagesTokens(msgs []Message) int
}

// EstimateTokenizer provides a character-based token estimation that is
// CJK-aware: Han runes count roughly one token each, other text roughly
// four characters per token. No encoding data download required.
type EstimateTokenizer struct {
	charsPerToken float64
	msgOverhead   int
}

// NewEstimateTokenizer creates a new EstimateTokenizer.
func NewEstimateTokenizer() *EstimateTokenizer {
	return &EstimateTokenizer{
		charsPerToken: 4.0,
		msgOverhead:   4,
	}
}

// CountTokens estimates tokens in a text string.
func (t *EstimateTokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	cjk := 0
	other := 0
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			cjk++
		} else {
			other++
		}
	}
	tokens := cjk + int(float64(other)/t.charsPerToken)
	if tokens == 0 {
		tokens = 1
	}
	return tokens
}

// CountMessageTokens estimates tokens in a single message.
func (t *EstimateTokenizer) CountMessageTokens(msg Message) int {
	return t.CountTokens(msg.Content) + t.msgOverhead
}

// CountMessagesTokens estimates total tokens in a message slice.
func (t *EstimateTokenizer) CountMessagesTokens(msgs []Message) int {
	total := 0
	for _, msg := range msgs {
		total += t.CountMessageTokens(msg)
	}
	return total
}

// TiktokenTokenizer counts tokens with a real BPE encoding.
type TiktokenTokenizer struct {
	enc         *tiktoken.Tiktoken
	msgOverhead int
}

// NewTiktokenTokenizer creates a tokenizer for the given model
// (e.g. "gpt-4o"). Falls back to an error when the encoding data is
// unavailable; callers typically degrade to NewEstimateTokenizer.
func NewTiktokenTokenizer(model string) (*TiktokenTokenizer, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding for %s: %w", model, err)
	}
	return &TiktokenTokenizer{enc: enc, msgOverhead: 4}, nil
}

// CountTokens counts tokens in a text string.
func (t *TiktokenTokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// CountMessageTokens counts tokens in a single message.
func (t *TiktokenTokenizer) CountMessageTokens(msg Message) int {
	return t.CountTokens(msg.Content) + t.msgOverhead
}

// CountMessagesTokens counts total tokens in a message slice.
func (t *TiktokenTokenizer) CountMessagesTokens(msgs []Message) int {
	total := 0
	for _, msg := range msgs {
		total += t.CountMessageTokens(msg)
	}
	return total
}

// Compile-time interface compliance checks.
var (
	_ Tokenizer = (*EstimateTokenizer)(nil)
	_ Tokenizer = (*TiktokenTokenizer)(nil)
)
