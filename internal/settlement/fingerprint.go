package settlement

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint hashes every input a report is computed from. Equal fingerprints yield
// equal figures, so a cached report keyed on it can never be stale.
func (in Input) Fingerprint() (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	parts := []interface{}{
		in.Event,
		in.Rows,
		in.Reference.Fees.Params(),
		in.Reference.Grace.Conversions(),
		in.Expenses,
		in.Splits,
	}
	for _, part := range parts {
		if err := enc.Encode(part); err != nil {
			return "", fmt.Errorf("settlement: fingerprint: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)[:16]), nil
}
