// Package bitnet - Oeffentliche Session-API
//
// Der High-Level-Einstiegspunkt: Load baut GPU-Kontext, Gewichts-
// Speicher und Modell aus einer Quelle auf; Session.Generate/
// GenerateChat treiben die Generierungs-Engine; Dispose gibt alles
// frei. Gegrounded auf original_source's lib.rs (BitNet::load/generate/
// generate_chat/dispose).
package bitnet

import (
	"bytes"
	"context"
	"sync"

	"github.com/ollama/bitnet/bnerrors"
	"github.com/ollama/bitnet/fs/gguf"
	"github.com/ollama/bitnet/generate"
	"github.com/ollama/bitnet/gpu"
	"github.com/ollama/bitnet/model"
	"github.com/ollama/bitnet/nn/weights"
	"github.com/ollama/bitnet/source"
	"github.com/ollama/bitnet/tokenizer"
)

// LoadOptions configures Load. Backend overrides automatic GPU backend
// selection (spec.md §4.4); CacheDir overrides config.CacheDir() for the
// model-source collaborator.
type LoadOptions struct {
	Backend  string
	CacheDir string
}

// Session is a loaded model ready to generate. A Session is not safe
// for concurrent Generate calls (spec.md §5: the generate engine
// serializes all forward calls).
type Session struct {
	mu       sync.Mutex
	disposed bool

	device *gpu.Device
	engine *generate.Engine
}

// Load fetches model bytes from src (a local path or http(s) URL),
// parses the container, uploads every tensor to the GPU, and builds the
// full layer stack, per spec.md §4.1-§4.3 and §4.9. tok is the caller-
// supplied tokenizer collaborator (spec.md §6: tokenizers are out of
// this core's scope).
func Load(ctx context.Context, src string, tok tokenizer.Tokenizer, cfg model.Config, opts LoadOptions) (*Session, error) {
	fetcher := source.New()
	if opts.CacheDir != "" {
		fetcher.CacheDir = opts.CacheDir
	}

	raw, err := fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}

	f, err := gguf.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	device, err := gpu.Open(opts.Backend)
	if err != nil {
		return nil, err
	}

	store := weights.New(device)
	runtime := gpu.NewRuntime(device)
	m, err := model.Load(f, raw, cfg, store, runtime)
	if err != nil {
		device.Close()
		return nil, err
	}

	return &Session{
		device: device,
		engine: generate.New(m, tok),
	}, nil
}

// Generate tokenizes prompt and streams generated text.
func (s *Session) Generate(prompt string, opts generate.Options) (*generate.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return nil, bnerrors.NotLoaded()
	}

	ids, err := s.engine.Tokenizer.Encode(prompt, true)
	if err != nil {
		return nil, bnerrors.New(bnerrors.KindTokenizer, "Session.Generate", err)
	}
	return s.engine.GenerateFromIDs(ids, opts), nil
}

// GenerateChat applies the tokenizer's chat template and streams
// generated text.
func (s *Session) GenerateChat(messages []tokenizer.Message, opts generate.Options) (*generate.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return nil, bnerrors.NotLoaded()
	}

	ids, err := s.engine.Tokenizer.ApplyChatTemplate(messages)
	if err != nil {
		return nil, bnerrors.New(bnerrors.KindTokenizer, "Session.GenerateChat", err)
	}
	return s.engine.GenerateFromIDs(ids, opts), nil
}

// Dispose releases GPU resources and resets every KV cache to seq_len
// 0. Idempotent (spec.md §4.12, §5).
func (s *Session) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true

	s.engine.Model.Reset()
	s.device.Close()
}
