// Package llm holds the greedy top-k decode loop shared by every inference
// backend, and the Engine interface that isolates it from llama.cpp's
// actual C API. Engine implementations (internal/llm/llamacpp, the real
// backend; internal/llm/fake, for tests) do the tokenizing and matrix math;
// this package owns the token-selection and stopping-condition logic,
// grounded on the original service's inference().
package llm

import "context"

// Engine is the per-session handle a loaded model exposes to the decode
// loop. A single Engine is not safe for concurrent use; the generation
// manager serializes access to a given session's engine.
type Engine interface {
	// Tokenize converts text into the model's vocabulary, optionally
	// prefixing the beginning-of-sequence token.
	Tokenize(text string, addBOS bool) ([]int32, error)

	// Decode submits tokens as the initial prompt batch. Only the logits for
	// the final token are retrievable afterwards, matching llama.cpp's
	// batch logits_all=false convention for prompt processing.
	Decode(ctx context.Context, tokens []int32) error

	// DecodeOne submits a single continuation token at the given KV-cache
	// position.
	DecodeOne(ctx context.Context, token int32, pos int32) error

	// Logits returns the vocabulary-sized logit vector for the most recent
	// decode call. The slice is only valid until the next Decode/DecodeOne.
	Logits() []float32

	// TokenToString renders a single token id as the text fragment the
	// model's tokenizer assigns to it.
	TokenToString(token int32) string

	// IsEOS reports whether token is the model's end-of-sequence token.
	IsEOS(token int32) bool

	// ClearKVCache resets the context's attention cache before a new
	// generation begins.
	ClearKVCache()

	// Close releases any resources (memory, file handles) tied to the
	// context. It does not unload the underlying model.
	Close() error
}
