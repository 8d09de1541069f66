// Package tokens estimates token counts for rendered responses.
package tokens

import (
	"sync"
	"unicode/utf8"

	"github.com/tiktoken-go/tokenizer"

	"github.com/linanwx/echochat/logger"
)

var (
	once  sync.Once
	codec tokenizer.Codec
)

func load() {
	c, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		logger.Warn("tokenizer unavailable, falling back to estimate", "err", err)
		return
	}
	codec = c
}

// Count returns the cl100k token count of text. If the encoder cannot be
// loaded it falls back to roughly four runes per token.
func Count(text string) int {
	if text == "" {
		return 0
	}
	once.Do(load)
	if codec != nil {
		if ids, _, err := codec.Encode(text); err == nil {
			return len(ids)
		}
	}
	return Estimate(text)
}

// Estimate is the encoder-free approximation used by Count.
func Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
