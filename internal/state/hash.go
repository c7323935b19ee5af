package state

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"emwy/internal/compile"
)

// Fingerprint returns a deterministic hash of a compiled model. Models that
// compile from equivalent documents share a fingerprint.
func Fingerprint(m *compile.Model) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", errors.Wrap(err, "encode model")
	}
	return hashBytes(data), nil
}

// DocumentHash returns a hash of the raw project document.
func DocumentHash(contents []byte) string {
	return hashBytes(contents)
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("sha256:%x", sum)
}
