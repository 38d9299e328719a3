// Package gguf - Key/Value-Metadaten
//
// KV ist die dekodierte Metadaten-Tabelle einer GGUF-Datei. Dieses Modul
// stellt generische, typsichere Zugriffsfunktionen bereit; die
// architekturspezifischen Schluessel (z.B. "bitnet.attention.head_count")
// werden vom Loader (model/loader.go) interpretiert, nicht hier.
package gguf

import "strings"

// KV is the flat key/value metadata table decoded from a container.
type KV map[string]any

func (kv KV) Architecture() string {
	return kv.String("general.architecture", "unknown")
}

func (kv KV) Alignment() uint32 {
	return uint32(kv.Uint("general.alignment", 32))
}

func (kv KV) String(key string, dflt ...string) string {
	if v, ok := kv[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	if len(dflt) > 0 {
		return dflt[0]
	}
	return ""
}

func (kv KV) Uint(key string, dflt ...uint64) uint64 {
	if v, ok := kv[key]; ok {
		switch n := v.(type) {
		case uint8:
			return uint64(n)
		case uint16:
			return uint64(n)
		case uint32:
			return uint64(n)
		case uint64:
			return n
		case int8:
			return uint64(n)
		case int16:
			return uint64(n)
		case int32:
			return uint64(n)
		case int64:
			return uint64(n)
		}
	}
	if len(dflt) > 0 {
		return dflt[0]
	}
	return 0
}

func (kv KV) Float(key string, dflt ...float64) float64 {
	if v, ok := kv[key]; ok {
		switch n := v.(type) {
		case float32:
			return float64(n)
		case float64:
			return n
		}
	}
	if len(dflt) > 0 {
		return dflt[0]
	}
	return 0
}

func (kv KV) Bool(key string, dflt ...bool) bool {
	if v, ok := kv[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	if len(dflt) > 0 {
		return dflt[0]
	}
	return false
}

// Strings reads a string array, returning nil if absent or a scalar.
func (kv KV) Strings(key string) []string {
	v, ok := kv[key]
	if !ok {
		return nil
	}
	a, ok := v.(*array[string])
	if !ok {
		return nil
	}
	return a.values
}

// ArchKey builds an architecture-prefixed metadata key, e.g.
// "bitnet.attention.head_count", matching the container convention of
// namespacing most keys under "general.architecture"'s value.
func (kv KV) ArchKey(suffix string) string {
	var b strings.Builder
	b.WriteString(kv.Architecture())
	b.WriteByte('.')
	b.WriteString(suffix)
	return b.String()
}
