package ratelimit

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/thostetler/nectar-sub000/pkg/clientip"
)

// maxKeyLength keeps storage keys short; longer composite keys are hashed.
const maxKeyLength = 64

// KeyFunc extracts the rate limit key from a request. An empty key skips
// limiting.
type KeyFunc func(*http.Request) string

// ClientIP keys by the resolved client address. Requests whose address
// cannot be determined share the "unknown" bucket.
func ClientIP(r *http.Request) string {
	if ip := clientip.FromContext(r.Context()); ip != "" {
		return ip
	}
	return clientip.GetIP(r)
}

// Composite joins the non-empty keys of fns with ":".
func Composite(fns ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(fns))
		for _, fn := range fns {
			if key := fn(r); key != "" {
				parts = append(parts, key)
			}
		}
		if len(parts) == 0 {
			return ""
		}

		combined := strings.Join(parts, ":")
		if len(combined) > maxKeyLength {
			return strconv.FormatUint(xxhash.Sum64String(combined), 16)
		}
		return combined
	}
}
