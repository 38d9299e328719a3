package generate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ollama/bitnet/kvcache"
	"github.com/ollama/bitnet/model"
	"github.com/ollama/bitnet/nn/attention"
	"github.com/ollama/bitnet/nn/bitlinear"
	"github.com/ollama/bitnet/nn/ffn"
	"github.com/ollama/bitnet/nn/transformer"
	"github.com/ollama/bitnet/tokenizer"
)

// stubTokenizer decodes every id to "x" and stops at id 0, treated as
// EOS.
type stubTokenizer struct{}

func (stubTokenizer) Encode(text string, addBOS bool) ([]int32, error) { return []int32{1, 2}, nil }
func (stubTokenizer) DecodeOne(id int32) (string, error)               { return "x", nil }
func (stubTokenizer) ApplyChatTemplate(msgs []tokenizer.Message) ([]int32, error) {
	return []int32{1}, nil
}
func (stubTokenizer) EOSID() int32           { return 0 }
func (stubTokenizer) EOTID() (int32, bool)   { return 0, false }
func (stubTokenizer) ImEndID() (int32, bool) { return 0, false }
func (stubTokenizer) BOSID() int32           { return 1 }

func identityLayer(dim int) *bitlinear.Layer {
	w := make([]int8, dim*dim)
	scale := make([]float32, dim)
	for i := 0; i < dim; i++ {
		w[i*dim+i] = 1
		scale[i] = 1
	}
	return &bitlinear.Layer{In: dim, Out: dim, Weight: w, WeightScale: scale}
}

func unitNorm(dim int) []float32 {
	w := make([]float32, dim)
	for i := range w {
		w[i] = 1
	}
	return w
}

func tinyModel() *model.Model {
	dim := 4
	vocab := 6
	block := &transformer.Block{
		HiddenSize:             dim,
		InputLayerNorm:         unitNorm(dim),
		PostAttentionLayerNorm: unitNorm(dim),
		Attention: &attention.Block{
			Config: attention.Config{NumHeads: 1, NumKVHeads: 1, HeadDim: dim, RopeBase: 10000},
			QProj:  identityLayer(dim), KProj: identityLayer(dim),
			VProj: identityLayer(dim), OProj: identityLayer(dim),
		},
		FFN: &ffn.Block{Activation: ffn.ActivationReluSquared, Up: identityLayer(dim), Down: identityLayer(dim)},
	}
	embed := make([]float32, vocab*dim)
	for i := range embed {
		embed[i] = float32(i%5) + 1
	}
	return &model.Model{
		Config:      model.Config{HiddenSize: dim, VocabSize: vocab, NumLayers: 1, TiedEmbedding: true, RMSEpsilon: 1e-5},
		EmbedTokens: embed,
		FinalNorm:   unitNorm(dim),
		Layers:      []*transformer.Block{block},
		Caches:      []*kvcache.Cache{kvcache.New(1, dim, 32)},
	}
}

func TestGenerateFromIDsStopsWithinMaxTokens(t *testing.T) {
	eng := New(tinyModel(), stubTokenizer{})
	stream := eng.GenerateFromIDs([]int32{1, 2}, Options{MaxTokens: 3, Temperature: 1, TopK: 0, RepeatPenalty: 1, RepeatLastN: 4})

	var got []string
	timeout := time.After(2 * time.Second)
loop:
	for {
		select {
		case s, ok := <-stream.Tokens:
			if !ok {
				break loop
			}
			got = append(got, s)
		case err := <-stream.Errs:
			require.NoError(t, err)
		case <-timeout:
			t.Fatal("generation did not complete in time")
		}
	}

	assert.LessOrEqual(t, len(got), 3)
}
