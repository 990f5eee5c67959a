package models

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// Identifier prefixes. They make ids self-describing in logs and data files.
const (
	UserIDPrefix     = "usr"
	SessionIDPrefix  = "sid"
	NotebookIDPrefix = "nbk"
	CellIDPrefix     = "cell"
)

// NewID returns "<prefix>_<32 hex chars>" built from a random (v4) UUID.
func NewID(prefix string) string {
	id := uuid.New()
	return prefix + "_" + hex.EncodeToString(id[:])
}
