package repository

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/siloworks/silo/internal/types"
)

// encodeDeps serializes a parsed dependency list into the JSON blob
// RepositoryPackage.DepsJSON stores, matching the encoding
// engine.catalogOracle decodes back into []types.Dep when building
// resolver candidates.
func encodeDeps(deps []types.Dep) string {
	if len(deps) == 0 {
		return ""
	}
	b, err := json.Marshal(deps)
	if err != nil {
		return ""
	}
	return string(b)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
