package llm

import (
	"context"
	"sort"
	"strings"

	"github.com/corvid-labs/rowgen/internal/model"
	"github.com/corvid-labs/rowgen/internal/rgerrors"
)

const repetitionWindow = 10
const repetitionThreshold = 3
const responseCharCap = 200

// Generate runs the prompt through eng and greedily decodes a completion,
// applying every early-stop heuristic the original inference loop used:
// an EOS check, a sliding repetition window, fence/newline detection after
// a handful of tokens, sentence-ending punctuation after a longer run, and
// a character cap, on top of the max_tokens budget.
func Generate(ctx context.Context, eng Engine, prompt string, cfg model.InferenceConfig) (string, error) {
	tokens, err := eng.Tokenize(prompt, cfg.AddBOS)
	if err != nil {
		return "", rgerrors.Wrap(rgerrors.KindModel, "tokenize failed", err)
	}

	eng.ClearKVCache()
	if err := eng.Decode(ctx, tokens); err != nil {
		return "", rgerrors.Wrap(rgerrors.KindModel, "prompt decode failed", err)
	}

	var response strings.Builder
	window := make([]int32, 0, repetitionWindow)
	repetitionCount := 0
	tokensGenerated := 0
	pos := int32(len(tokens))

	for {
		select {
		case <-ctx.Done():
			return response.String(), rgerrors.Wrap(rgerrors.KindCancelled, "generation cancelled", ctx.Err())
		default:
		}

		next := selectNextToken(eng.Logits(), cfg.TopK)

		if eng.IsEOS(next) {
			break
		}

		if len(window) == repetitionWindow && allEqual(window, next) {
			repetitionCount++
			if repetitionCount > repetitionThreshold {
				break
			}
		} else {
			repetitionCount = 0
		}
		window = append(window, next)
		if len(window) > repetitionWindow {
			window = window[1:]
		}

		tokensGenerated++
		if tokensGenerated >= cfg.MaxTokens {
			break
		}

		response.WriteString(eng.TokenToString(next))
		trimmed := strings.TrimSpace(response.String())

		if tokensGenerated > 3 && (strings.Contains(trimmed, "```") || strings.Contains(trimmed, "\n")) {
			break
		}
		if tokensGenerated > 10 {
			if strings.HasSuffix(trimmed, ".") || strings.HasSuffix(trimmed, "!") || strings.HasSuffix(trimmed, "?") {
				break
			}
		}
		if len(response.String()) > responseCharCap {
			break
		}

		if err := eng.DecodeOne(ctx, next, pos); err != nil {
			return response.String(), rgerrors.Wrap(rgerrors.KindModel, "continuation decode failed", err)
		}
		pos++
	}

	return response.String(), nil
}

func allEqual(window []int32, next int32) bool {
	for _, t := range window {
		if t != next {
			return false
		}
	}
	return true
}

// selectNextToken reproduces the fixed-size candidate-pool top-k scan: keep
// the topK highest-logit tokens seen so far by always replacing the current
// minimum of the pool, then sort once at the end and take the best. topK<=0
// falls back to a plain full-vocabulary argmax.
func selectNextToken(logits []float32, topK int) int32 {
	if topK <= 0 {
		best := int32(0)
		bestLogit := logits[0]
		for i := 1; i < len(logits); i++ {
			if logits[i] > bestLogit {
				bestLogit = logits[i]
				best = int32(i)
			}
		}
		return best
	}

	type candidate struct {
		token int32
		logit float32
	}
	pool := make([]candidate, 0, topK)
	for i, v := range logits {
		if len(pool) < topK {
			pool = append(pool, candidate{int32(i), v})
			continue
		}
		minIdx := 0
		for j := 1; j < len(pool); j++ {
			if pool[j].logit < pool[minIdx].logit {
				minIdx = j
			}
		}
		if v > pool[minIdx].logit {
			pool[minIdx] = candidate{int32(i), v}
		}
	}

	sort.Slice(pool, func(a, b int) bool { return pool[a].logit > pool[b].logit })
	return pool[0].token
}
