// Package tokenizer - Tokenizer-Kollaborator-Schnittstelle
//
// Der Tokenizer ist laut Spezifikation bewusst ausserhalb des Kerns:
// BPE-Internals und Chat-Template-Anwendung werden nur ueber diese
// Schnittstelle konsumiert (spec.md §6, §7 "DELIBERATELY OUT OF
// SCOPE"). Ein konkreter Tokenizer ist kein Bestandteil dieses Moduls.
package tokenizer

// Message is one chat turn.
type Message struct {
	Role    string
	Content string
}

// Tokenizer is the opaque collaborator the generate engine consumes. The
// core makes no assumption about BPE internals.
type Tokenizer interface {
	Encode(text string, addBOS bool) ([]int32, error)
	DecodeOne(id int32) (string, error)
	ApplyChatTemplate(messages []Message) ([]int32, error)

	EOSID() int32
	EOTID() (int32, bool)
	ImEndID() (int32, bool)
	BOSID() int32
}
