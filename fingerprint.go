package reqflow

import (
	"crypto/sha256"
	"fmt"
	"hash/fnv"
	"net/http"
	"sort"
	"strings"
)

// DedupStrategy selects which request attributes participate in fingerprinting.
type DedupStrategy int

const (
	// StrategyURLBased fingerprints on method + URL only.
	StrategyURLBased DedupStrategy = iota
	// StrategyContentBased adds a hash of the body and, when an allowlist is
	// configured, a hash of the allowlisted headers.
	StrategyContentBased
	// StrategyHashBased folds method, URL, body and all headers into a single
	// combined hash.
	StrategyHashBased
)

// String returns the strategy name.
func (s DedupStrategy) String() string {
	switch s {
	case StrategyURLBased:
		return "url_based"
	case StrategyContentBased:
		return "content_based"
	case StrategyHashBased:
		return "hash_based"
	default:
		return "unknown"
	}
}

// RequestFingerprint identifies structurally identical requests. Two requests
// with equal fingerprints under the same strategy are duplicates regardless of
// submission order.
type RequestFingerprint struct {
	Method      string
	URL         string
	ContentHash string
	HeadersHash string
}

// Key returns the compact map key for this fingerprint.
func (fp RequestFingerprint) Key() string {
	h := fnv.New64a()
	h.Write([]byte(fp.Method))
	h.Write([]byte{0})
	h.Write([]byte(fp.URL))
	h.Write([]byte{0})
	h.Write([]byte(fp.ContentHash))
	h.Write([]byte{0})
	h.Write([]byte(fp.HeadersHash))
	return fmt.Sprintf("%x", h.Sum64())
}

// Fingerprinter derives RequestFingerprints according to a strategy.
type Fingerprinter struct {
	strategy        DedupStrategy
	headerAllowlist []string
}

// NewFingerprinter creates a fingerprinter. The allowlist only matters under
// StrategyContentBased; header names are matched case-insensitively.
func NewFingerprinter(strategy DedupStrategy, headerAllowlist []string) *Fingerprinter {
	allow := make([]string, 0, len(headerAllowlist))
	for _, name := range headerAllowlist {
		allow = append(allow, http.CanonicalHeaderKey(name))
	}
	sort.Strings(allow)
	return &Fingerprinter{strategy: strategy, headerAllowlist: allow}
}

// Fingerprint derives the fingerprint for one request.
func (f *Fingerprinter) Fingerprint(method, url string, headers http.Header, body []byte) RequestFingerprint {
	fp := RequestFingerprint{
		Method: strings.ToUpper(method),
		URL:    url,
	}

	switch f.strategy {
	case StrategyURLBased:
		// method + URL only

	case StrategyContentBased:
		if len(body) > 0 {
			fp.ContentHash = hashBytes(body)
		}
		if len(f.headerAllowlist) > 0 && headers != nil {
			fp.HeadersHash = f.hashAllowlistedHeaders(headers)
		}

	case StrategyHashBased:
		h := sha256.New()
		h.Write([]byte(fp.Method))
		h.Write([]byte{0})
		h.Write([]byte(url))
		h.Write([]byte{0})
		h.Write(body)
		h.Write([]byte{0})
		writeCanonicalHeaders(h, headers, nil)
		fp.ContentHash = fmt.Sprintf("%x", h.Sum(nil))
	}

	return fp
}

func (f *Fingerprinter) hashAllowlistedHeaders(headers http.Header) string {
	h := sha256.New()
	writeCanonicalHeaders(h, headers, f.headerAllowlist)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return fmt.Sprintf("%x", sum)
}

// writeCanonicalHeaders writes headers to h in sorted key order so hashes are
// stable across map iteration. A nil allowlist means every header.
func writeCanonicalHeaders(h interface{ Write([]byte) (int, error) }, headers http.Header, allowlist []string) {
	if headers == nil {
		return
	}

	var keys []string
	if allowlist != nil {
		keys = allowlist
	} else {
		keys = make([]string, 0, len(headers))
		for k := range headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}

	for _, k := range keys {
		values, ok := headers[http.CanonicalHeaderKey(k)]
		if !ok {
			continue
		}
		h.Write([]byte(k))
		h.Write([]byte{':'})
		for _, v := range values {
			h.Write([]byte(v))
			h.Write([]byte{0})
		}
		h.Write([]byte{'\n'})
	}
}
