// tokenizer.go - minimaler Byte-Level-Tokenizer fuer die CLI
//
// Die Spezifikation behandelt den Tokenizer bewusst als externen
// Kollaborator (spec.md §6, §7); dieses Paket liefert nur eine
// einfache Byte-Level-Implementierung, damit die CLI ohne eine externe
// BPE-Bibliothek lauffaehig ist. Kein Bestandteil des Kerns.
package cli

import (
	"github.com/ollama/bitnet/tokenizer"
)

const (
	byteTokenBase = 0
	eosToken      = 256
)

// byteTokenizer maps each byte value to its own token id (0-255) and
// reserves 256 as end-of-sequence. It round-trips any UTF-8 text but
// produces far more tokens than a real BPE vocabulary would.
type byteTokenizer struct{}

func (byteTokenizer) Encode(text string, addBOS bool) ([]int32, error) {
	b := []byte(text)
	ids := make([]int32, 0, len(b)+1)
	if addBOS {
		ids = append(ids, eosToken)
	}
	for _, c := range b {
		ids = append(ids, int32(c)+byteTokenBase)
	}
	return ids, nil
}

func (byteTokenizer) DecodeOne(id int32) (string, error) {
	if id < 0 || id >= eosToken {
		return "", nil
	}
	return string([]byte{byte(id)}), nil
}

func (byteTokenizer) ApplyChatTemplate(messages []tokenizer.Message) ([]int32, error) {
	var text string
	for _, m := range messages {
		text += m.Role + ": " + m.Content + "\n"
	}
	return byteTokenizer{}.Encode(text, true)
}

func (byteTokenizer) EOSID() int32           { return eosToken }
func (byteTokenizer) EOTID() (int32, bool)   { return 0, false }
func (byteTokenizer) ImEndID() (int32, bool) { return 0, false }
func (byteTokenizer) BOSID() int32           { return eosToken }
