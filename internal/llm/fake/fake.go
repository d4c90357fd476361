// Package fake implements an llm.Engine backed by github.com/go-faker/faker/v4
// instead of a real model, so the row engine, sorter, and generation manager
// can be exercised end-to-end without a model file on disk. Determinism is
// achieved the way the teacher's faker determinism demo does it: pinning
// faker's crypto source to a seeded math/rand.Rand before generating.
package fake

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/go-faker/faker/v4"

	"github.com/corvid-labs/rowgen/internal/prng"
)

// eosToken is a sentinel outside the vocab range. Logits and IsEOS do not
// use it: once the scripted response is exhausted, Engine signals
// end-of-sequence through the extra logit slot at index len(vocab), so the
// shared decode loop terminates the same way it would on a real model's
// end-of-sequence token.
const eosToken int32 = -1

// Engine is a fake inference handle. Each Tokenize call builds a fresh
// script from the assembled prompt, so one Engine can serve many cells in
// turn, with llm.Generate driving it for each.
type Engine struct {
	seed   int64
	vocab  []string
	script []int32
	step   int
}

// New returns a fake Engine seeded by seed. The same seed always yields the
// same completion for the same prompt text.
func New(seed int64) *Engine {
	return &Engine{seed: seed}
}

func (e *Engine) Tokenize(text string, addBOS bool) ([]int32, error) {
	words := strings.Fields(text)
	tokens := make([]int32, len(words))
	for i := range words {
		tokens[i] = int32(i)
	}
	e.buildScript(text)
	return tokens, nil
}

func (e *Engine) buildScript(prompt string) {
	faker.SetCryptoSource(prng.NewReader(e.seed ^ promptHash(prompt)))

	n := 3 + int(promptHash(prompt)%6)
	e.vocab = make([]string, 0, n)
	for i := 0; i < n; i++ {
		word := faker.Word()
		if word == "" {
			word = "value"
		}
		e.vocab = append(e.vocab, word)
	}

	e.script = make([]int32, len(e.vocab))
	for i := range e.vocab {
		e.script[i] = int32(i)
	}
	e.step = 0
}

func promptHash(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64() & 0x7fffffffffffffff)
}

func (e *Engine) Decode(ctx context.Context, tokens []int32) error {
	e.step = 0
	return nil
}

func (e *Engine) DecodeOne(ctx context.Context, token int32, pos int32) error {
	e.step++
	return nil
}

// Logits returns a one-hot-ish distribution favoring the next scripted
// token, or pure EOS weight once the script is exhausted.
func (e *Engine) Logits() []float32 {
	size := len(e.vocab) + 1 // + EOS slot at the end
	logits := make([]float32, size)
	for i := range logits {
		logits[i] = 0
	}

	if e.step >= len(e.script) {
		logits[size-1] = 1
		return logits
	}
	logits[e.script[e.step]] = 1
	return logits
}

func (e *Engine) TokenToString(token int32) string {
	if int(token) < 0 || int(token) >= len(e.vocab) {
		return ""
	}
	if token == 0 {
		return e.vocab[token]
	}
	return " " + e.vocab[token]
}

func (e *Engine) IsEOS(token int32) bool {
	return int(token) == len(e.vocab)
}

func (e *Engine) ClearKVCache() {
	e.step = 0
}

func (e *Engine) Close() error { return nil }
