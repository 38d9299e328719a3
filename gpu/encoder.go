// Package gpu - Command-Encoder und Dispatch-Beschreibung
//
// Ein Encoder sammelt die Compute-Dispatches eines einzelnen Forward-
// Aufrufs in Programmreihenfolge (spec.md §5: ein Command-Buffer pro
// Forward, einmal submitted). Unabhaengig vom Build-Tag, da nur Go-
// seitige Buchhaltung.
package gpu

// BufferUsage mirrors wgpu's buffer usage bitflags for the subset this
// engine needs.
type BufferUsage uint32

const (
	UsageStorage BufferUsage = 1 << iota
	UsageUniform
	UsageCopySrc
	UsageCopyDst
	UsageMapRead
)

// Binding is one bind-group entry: a buffer bound at a binding index.
type Binding struct {
	Index  uint32
	Buffer *Buffer
}

// Dispatch is one compute-pass dispatch against a compiled pipeline.
type Dispatch struct {
	Pipeline   *Pipeline
	Bindings   []Binding
	WorkgroupX uint32
	WorkgroupY uint32
	WorkgroupZ uint32
}

// Encoder accumulates dispatches for one forward call's command buffer.
type Encoder struct {
	Dispatches []Dispatch
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) Add(d Dispatch) {
	e.Dispatches = append(e.Dispatches, d)
}
