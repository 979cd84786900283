package models

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// NewOCID returns an identifier of the form ocid1.<resource>.oc1..<hex>.
func NewOCID(resource string) string {
	u := uuid.New()
	return "ocid1." + resource + ".oc1.." + hex.EncodeToString(u[:])
}
