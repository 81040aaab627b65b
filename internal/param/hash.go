package param

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainDefinition prefixes definition hashes. The version suffix allows
// the encoding to change without colliding with stored hashes.
const DomainDefinition = "tfc/definition/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns a stable content hash of the tree. Field order is part of
// the identity; field names are NFC-normalized on the way in.
func Hash(p *Parameter) (string, error) {
	data, err := p.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("hash %q: %w", p.Name(), err)
	}
	return hashWithDomain(DomainDefinition, data), nil
}
