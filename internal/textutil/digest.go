package textutil

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes the given parts into a stable 64-bit digest. A NUL
// separator keeps ("ab","c") and ("a","bc") distinct. Caches key feature
// bundles by rule ID plus this digest of the text fields, so editing a
// rule's text without changing its ID can never serve a stale bundle.
func Fingerprint(parts ...string) uint64 {
	d := xxhash.New()
	for _, p := range parts {
		_, _ = d.WriteString(p)
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}

// FingerprintKey renders Fingerprint as a fixed-width hex string suitable
// for map keys and debug output.
func FingerprintKey(parts ...string) string {
	return strconv.FormatUint(Fingerprint(parts...), 16)
}
