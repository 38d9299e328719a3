// Package generate - Generierungs-Engine (C12)
//
// Idle -> Prefill -> Decode -> (Stop|Next) -> Idle Zustandsautomat.
// Gegrounded auf original_source's lib.rs (generate_from_ids); da Go
// keine nativen async Streams hat, wird die Emission ueber ein
// Kanal-Paar (string, error) realisiert, angelehnt an die
// Streaming-Form des Lehrer-Repos' runner/ollamarunner (HTTP-Handler
// dort, Kanal-Paar hier mangels HTTP-Oberflaeche).
package generate

import (
	"github.com/google/uuid"

	"github.com/ollama/bitnet/bnerrors"
	"github.com/ollama/bitnet/logutil"
	"github.com/ollama/bitnet/model"
	"github.com/ollama/bitnet/sample"
	"github.com/ollama/bitnet/tokenizer"
)

// Options mirrors spec.md §6's GenerateOptions defaults.
type Options struct {
	MaxTokens     int
	Temperature   float32
	TopK          int
	RepeatPenalty float32
	RepeatLastN   int
}

// DefaultOptions matches spec.md §6: max_tokens=256, temperature=1.0,
// top_k=50, repeat_penalty=1.0, repeat_last_n=64.
func DefaultOptions() Options {
	return Options{
		MaxTokens:     256,
		Temperature:   1.0,
		TopK:          50,
		RepeatPenalty: 1.0,
		RepeatLastN:   64,
	}
}

// Engine couples a model with a tokenizer to drive one generation call
// at a time (spec.md §4.11, §5 — single-threaded cooperative scheduling
// at the logical level).
type Engine struct {
	Model     *model.Model
	Tokenizer tokenizer.Tokenizer
}

// New builds an Engine over an already-loaded model and tokenizer.
func New(m *model.Model, tok tokenizer.Tokenizer) *Engine {
	return &Engine{Model: m, Tokenizer: tok}
}

// Stream is the output of one generation call: a channel of accepted
// token strings and a channel that carries at most one error before
// closing (spec.md §7: runtime errors during a forward abort the stream
// cleanly). ID tags the stream's start and finish trace log lines so they
// can be paired when several streams' logs interleave.
type Stream struct {
	ID     string
	Tokens <-chan string
	Errs   <-chan error
}

// GenerateFromIDs runs Prefill then repeated Decode steps over an
// already-tokenized input id sequence, matching original_source's
// generate_from_ids (the shared core behind both text and chat entry
// points).
func (e *Engine) GenerateFromIDs(inputIDs []int32, opts Options) *Stream {
	id := uuid.New().String()
	tokens := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(tokens)
		defer close(errs)
		logutil.Trace("generate stream started", "id", id, "prompt_tokens", len(inputIDs))
		e.run(inputIDs, opts, tokens, errs)
		logutil.Trace("generate stream finished", "id", id)
	}()

	return &Stream{ID: id, Tokens: tokens, Errs: errs}
}

func (e *Engine) run(inputIDs []int32, opts Options, tokens chan<- string, errs chan<- error) {
	defer func() {
		if r := recover(); r != nil {
			errs <- bnerrors.New(bnerrors.KindGPURuntime, "generate.run", asError(r))
		}
	}()

	e.Model.Reset()

	logits := e.Model.Forward(inputIDs)
	window := sample.NewWindow(opts.RepeatLastN)

	stopIDs := e.stopIDs()

	for i := 0; i < opts.MaxTokens; i++ {
		next := sample.Sample(logits, sample.Options{
			Temperature:   opts.Temperature,
			TopK:          opts.TopK,
			RepeatPenalty: opts.RepeatPenalty,
			RecentTokens:  window.Ids(),
		})

		if isStop(next, stopIDs) {
			return
		}

		window.Push(next)

		if s, err := e.Tokenizer.DecodeOne(next); err == nil && s != "" {
			tokens <- s
		}

		logits = e.Model.Forward([]int32{next})
	}
}

func (e *Engine) stopIDs() []int32 {
	ids := []int32{e.Tokenizer.EOSID()}
	if id, ok := e.Tokenizer.EOTID(); ok {
		ids = append(ids, id)
	}
	if id, ok := e.Tokenizer.ImEndID(); ok {
		ids = append(ids, id)
	}
	return ids
}

func isStop(id int32, stopIDs []int32) bool {
	for _, s := range stopIDs {
		if id == s {
			return true
		}
	}
	return false
}

func asError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return bnerrors.ErrDeviceRequest
}
