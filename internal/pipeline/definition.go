package pipeline

import (
	"bytes"
	_ "embed"
)

// DefinitionName is the filename diagnostics refer to for the built-in
// pipeline definition.
const DefinitionName = "default.hcl"

//go:embed default.hcl
var defaultDefinition []byte

// DefaultDefinition returns a copy of the built-in stage sequence.
func DefaultDefinition() []byte {
	return bytes.Clone(defaultDefinition)
}
