// Package llamacpp binds directly against llama.cpp's public C API to give
// the decode loop in internal/llm the per-token logit and KV-cache control
// it needs. No published Go module in the pack exposes that level of
// control (they wrap whole-prompt completion instead), so this package is a
// direct cgo translation of the same API the original service's Rust
// llama_cpp_2 crate wraps.
package llamacpp

/*
#cgo LDFLAGS: -lllama -lggml -lm -lstdc++
#include <stdlib.h>
#include "llama.h"

static struct llama_batch rowgen_batch_init(int n_tokens, int embd, int n_seq_max) {
	return llama_batch_init(n_tokens, embd, n_seq_max);
}
*/
import "C"

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"github.com/corvid-labs/rowgen/internal/llm"
	"github.com/corvid-labs/rowgen/internal/model"
	"github.com/corvid-labs/rowgen/internal/rgerrors"
)

var backendOnce sync.Once

// initBackend lazily calls llama_backend_init exactly once per process,
// matching the original service's single shared LlamaBackend handle.
func initBackend() {
	backendOnce.Do(func() {
		C.llama_backend_init()
	})
}

// Model is a loaded llama.cpp model artifact shared across contexts. It is
// reference-counted by internal/modelcache, not by this package.
type Model struct {
	path string
	cptr *C.struct_llama_model
}

// Load reads a GGUF model file from path with the given GPU layer budget.
func Load(path string, gpuLayers uint32) (*Model, error) {
	initBackend()

	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	params := C.llama_model_default_params()
	params.n_gpu_layers = C.int32_t(gpuLayers)

	cptr := C.llama_model_load_from_file(cpath, params)
	if cptr == nil {
		return nil, rgerrors.New(rgerrors.KindModel, fmt.Sprintf("failed to load model at %s", path))
	}
	return &Model{path: path, cptr: cptr}, nil
}

// NewEngine builds a decode context from this model, satisfying
// generation.ModelHandle so the model cache's handle can be turned directly
// into a per-session llm.Engine.
func (m *Model) NewEngine(cfg model.InferenceConfig) (llm.Engine, error) {
	return NewContext(m, cfg)
}

// Close frees the underlying model. Callers must ensure no Context built
// from this Model is still in use.
func (m *Model) Close() error {
	if m.cptr != nil {
		C.llama_model_free(m.cptr)
		m.cptr = nil
	}
	return nil
}

// Context is a single inference session against a Model: KV cache, batch
// buffer, and the llm.Engine methods the decode loop drives.
type Context struct {
	model *Model
	cptr  *C.struct_llama_context
	batch C.struct_llama_batch

	vocab    *C.struct_llama_vocab
	nVocab   int32
	lastPos  int32
	closed   bool
}

// NewContext builds a decode context from a loaded model using cfg's
// batch/context-size settings.
func NewContext(m *Model, cfg model.InferenceConfig) (*Context, error) {
	params := C.llama_context_default_params()
	params.n_ctx = C.uint32_t(cfg.ContextSize)
	params.n_batch = C.uint32_t(cfg.BatchSize)

	cptr := C.llama_init_from_model(m.cptr, params)
	if cptr == nil {
		return nil, rgerrors.New(rgerrors.KindModel, "failed to create inference context")
	}

	vocab := C.llama_model_get_vocab(m.cptr)
	nVocab := int32(C.llama_vocab_n_tokens(vocab))

	batch := C.rowgen_batch_init(C.int(cfg.BatchSize), 0, 1)

	return &Context{model: m, cptr: cptr, batch: batch, vocab: vocab, nVocab: nVocab}, nil
}

func (c *Context) Tokenize(text string, addBOS bool) ([]int32, error) {
	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))

	maxTokens := C.int32_t(len(text) + 8)
	buf := make([]C.llama_token, int(maxTokens))

	n := C.llama_tokenize(
		c.vocab,
		ctext,
		C.int32_t(len(text)),
		&buf[0],
		maxTokens,
		C.bool(addBOS),
		C.bool(true),
	)
	if n < 0 {
		return nil, rgerrors.New(rgerrors.KindModel, "tokenize buffer too small")
	}

	tokens := make([]int32, int(n))
	for i := 0; i < int(n); i++ {
		tokens[i] = int32(buf[i])
	}
	return tokens, nil
}

func (c *Context) Decode(ctx context.Context, tokens []int32) error {
	c.batch.n_tokens = C.int32_t(len(tokens))
	tokenSlice := (*[1 << 20]C.llama_token)(unsafe.Pointer(c.batch.token))[:len(tokens):len(tokens)]
	posSlice := (*[1 << 20]C.llama_pos)(unsafe.Pointer(c.batch.pos))[:len(tokens):len(tokens)]
	seqIDCount := (*[1 << 20]C.int32_t)(unsafe.Pointer(c.batch.n_seq_id))[:len(tokens):len(tokens)]
	logitsFlag := (*[1 << 20]C.int8_t)(unsafe.Pointer(c.batch.logits))[:len(tokens):len(tokens)]

	for i, t := range tokens {
		tokenSlice[i] = C.llama_token(t)
		posSlice[i] = C.llama_pos(i)
		seqIDCount[i] = 1
		logitsFlag[i] = 0
	}
	logitsFlag[len(tokens)-1] = 1

	if C.llama_decode(c.cptr, c.batch) != 0 {
		return rgerrors.New(rgerrors.KindModel, "llama_decode failed on prompt batch")
	}
	c.lastPos = int32(len(tokens))
	return nil
}

func (c *Context) DecodeOne(ctx context.Context, token int32, pos int32) error {
	c.batch.n_tokens = 1
	tokenSlice := (*[1]C.llama_token)(unsafe.Pointer(c.batch.token))[:1:1]
	posSlice := (*[1]C.llama_pos)(unsafe.Pointer(c.batch.pos))[:1:1]
	seqIDCount := (*[1]C.int32_t)(unsafe.Pointer(c.batch.n_seq_id))[:1:1]
	logitsFlag := (*[1]C.int8_t)(unsafe.Pointer(c.batch.logits))[:1:1]

	tokenSlice[0] = C.llama_token(token)
	posSlice[0] = C.llama_pos(pos)
	seqIDCount[0] = 1
	logitsFlag[0] = 1

	if C.llama_decode(c.cptr, c.batch) != 0 {
		return rgerrors.New(rgerrors.KindModel, "llama_decode failed on continuation token")
	}
	c.lastPos = pos + 1
	return nil
}

func (c *Context) Logits() []float32 {
	ptr := C.llama_get_logits_ith(c.cptr, -1)
	return (*[1 << 28]float32)(unsafe.Pointer(ptr))[:c.nVocab:c.nVocab]
}

func (c *Context) TokenToString(token int32) string {
	buf := make([]C.char, 32)
	n := C.llama_token_to_piece(c.vocab, C.llama_token(token), &buf[0], C.int32_t(len(buf)), 0, C.bool(true))
	if n < 0 {
		buf = make([]C.char, -n)
		n = C.llama_token_to_piece(c.vocab, C.llama_token(token), &buf[0], C.int32_t(len(buf)), 0, C.bool(true))
	}
	return C.GoStringN(&buf[0], n)
}

func (c *Context) IsEOS(token int32) bool {
	return C.llama_vocab_is_eog(c.vocab, C.llama_token(token))
}

func (c *Context) ClearKVCache() {
	C.llama_memory_clear(C.llama_get_memory(c.cptr), C.bool(true))
}

func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	C.llama_batch_free(c.batch)
	C.llama_free(c.cptr)
	c.closed = true
	return nil
}
