package wallet

import (
	"encoding/hex"
	"strings"

	"github.com/Dead-Horse-gallery/dead-horse-frontend-sub001/internal/errors"
	"golang.org/x/crypto/sha3"
)

// NormalizeAddress returns the EIP-55 checksummed form of an Ethereum
// address. All-lower and all-upper input is accepted as-is; mixed case must
// already carry a valid checksum.
func NormalizeAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) != 42 || !(strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		return "", errors.Wrapf(errors.ErrInvalidAddress, "%q", s)
	}
	body := s[2:]
	if _, err := hex.DecodeString(body); err != nil {
		return "", errors.Wrapf(errors.ErrInvalidAddress, "%q", s)
	}

	sum := checksum(body)
	if body != strings.ToLower(body) && body != strings.ToUpper(body) && sum[2:] != body {
		return "", errors.Wrapf(errors.ErrInvalidAddress, "bad checksum %q", s)
	}
	return sum, nil
}

func checksum(body string) string {
	lower := strings.ToLower(body)

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := h.Sum(nil)

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] = c - 'a' + 'A'
		}
	}
	return "0x" + string(out)
}
