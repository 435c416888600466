package ops

import (
	"strings"

	"github.com/google/uuid"
)

// ID prefixes per record type.
const (
	PrefixUser             = "usr"
	PrefixReception        = "rcp"
	PrefixReceptionItem    = "rit"
	PrefixWastage          = "wst"
	PrefixProduction       = "prd"
	PrefixProductionOutput = "out"
	PrefixOperation        = "op"
)

// NewID returns prefix_ followed by 16 random hex characters.
func NewID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
