package reasoning

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tiktoken-go/tokenizer"
)

// DefaultGuidanceTokenBudget caps the content guidance sent with a
// reasoning request so accumulated rule guidance cannot blow up the prompt.
const DefaultGuidanceTokenBudget = 512

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

func guidanceCodec() tokenizer.Codec {
	codecOnce.Do(func() {
		var err error
		codec, err = tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			log.Warn().Err(err).Msg("Tokenizer unavailable, guidance budget falls back to line count")
		}
	})
	return codec
}

// JoinGuidance concatenates rule guidance lines into one prompt section,
// trimmed to the token budget. Lines arrive in priority-merge order, so
// trimming drops the lowest-priority guidance first.
func JoinGuidance(lines []string, tokenBudget int) string {
	if len(lines) == 0 {
		return ""
	}
	if tokenBudget <= 0 {
		tokenBudget = DefaultGuidanceTokenBudget
	}

	enc := guidanceCodec()
	var b strings.Builder
	used := 0
	kept := 0
	for _, line := range lines {
		cost := 1
		if enc != nil {
			ids, _, err := enc.Encode(line)
			if err == nil {
				cost = len(ids)
			}
		}
		if used+cost > tokenBudget {
			break
		}
		if kept > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		used += cost
		kept++
	}

	if kept < len(lines) {
		log.Debug().
			Int("kept", kept).
			Int("dropped", len(lines)-kept).
			Int("budget", tokenBudget).
			Msg("Trimmed content guidance to token budget")
	}
	return b.String()
}
