// Package gguf - Typ-Konstanten des GGUF-Containerformats
//
// Dieses Modul definiert die rohen Wire-Typ-Identifikatoren, die im
// Key/Value-Abschnitt einer GGUF-Datei auftauchen. Sie sind von
// TensorType (tensor.go) zu unterscheiden: dies hier sind Metadaten-
// Werttypen, TensorType beschreibt das Speicherformat der Gewichte.
package gguf

const (
	wireTypeUint8 uint32 = iota
	wireTypeInt8
	wireTypeUint16
	wireTypeInt16
	wireTypeUint32
	wireTypeInt32
	wireTypeFloat32
	wireTypeBool
	wireTypeString
	wireTypeArray
	wireTypeUint64
	wireTypeInt64
	wireTypeFloat64
)
