package reqflow

import (
	"net/http"
	"testing"
)

const fingerprintTestURL = "https://example.com/resource"

func TestURLBasedFingerprint(t *testing.T) {
	f := NewFingerprinter(StrategyURLBased, nil)

	a := f.Fingerprint("GET", fingerprintTestURL, nil, nil)
	b := f.Fingerprint("GET", fingerprintTestURL, nil, []byte("different body"))

	if a.Key() != b.Key() {
		t.Error("URL-based strategy should ignore the body")
	}

	c := f.Fingerprint("POST", fingerprintTestURL, nil, nil)
	if a.Key() == c.Key() {
		t.Error("Different methods should produce different fingerprints")
	}

	d := f.Fingerprint("GET", "https://example.com/other", nil, nil)
	if a.Key() == d.Key() {
		t.Error("Different URLs should produce different fingerprints")
	}
}

func TestContentBasedFingerprint(t *testing.T) {
	f := NewFingerprinter(StrategyContentBased, nil)

	a := f.Fingerprint("POST", fingerprintTestURL, nil, []byte(`{"a":1}`))
	b := f.Fingerprint("POST", fingerprintTestURL, nil, []byte(`{"a":1}`))
	if a.Key() != b.Key() {
		t.Error("Identical bodies should produce identical fingerprints")
	}

	c := f.Fingerprint("POST", fingerprintTestURL, nil, []byte(`{"a":2}`))
	if a.Key() == c.Key() {
		t.Error("Different bodies should produce different fingerprints")
	}
	if a.ContentHash == c.ContentHash {
		t.Error("Different bodies should produce different content hashes")
	}
}

func TestContentBasedFingerprintHeaderAllowlist(t *testing.T) {
	f := NewFingerprinter(StrategyContentBased, []string{"Authorization"})

	h1 := http.Header{"Authorization": []string{"Bearer one"}}
	h2 := http.Header{"Authorization": []string{"Bearer two"}}
	h3 := http.Header{"Authorization": []string{"Bearer one"}, "X-Trace": []string{"abc"}}

	a := f.Fingerprint("GET", fingerprintTestURL, h1, nil)
	b := f.Fingerprint("GET", fingerprintTestURL, h2, nil)
	c := f.Fingerprint("GET", fingerprintTestURL, h3, nil)

	if a.Key() == b.Key() {
		t.Error("Allowlisted header values should participate in the fingerprint")
	}
	if a.Key() != c.Key() {
		t.Error("Non-allowlisted headers should not participate in the fingerprint")
	}
}

func TestHashBasedFingerprint(t *testing.T) {
	f := NewFingerprinter(StrategyHashBased, nil)

	headers := http.Header{"Accept": []string{"application/json"}}
	a := f.Fingerprint("GET", fingerprintTestURL, headers, []byte("payload"))
	b := f.Fingerprint("GET", fingerprintTestURL, headers, []byte("payload"))
	if a.Key() != b.Key() {
		t.Error("Identical requests should produce identical combined hashes")
	}

	c := f.Fingerprint("GET", fingerprintTestURL, http.Header{"Accept": []string{"text/plain"}}, []byte("payload"))
	if a.Key() == c.Key() {
		t.Error("Any header difference should change the combined hash")
	}
}

func TestFingerprintMethodCaseInsensitive(t *testing.T) {
	f := NewFingerprinter(StrategyURLBased, nil)

	a := f.Fingerprint("get", fingerprintTestURL, nil, nil)
	b := f.Fingerprint("GET", fingerprintTestURL, nil, nil)
	if a.Key() != b.Key() {
		t.Error("Method comparison should be case-insensitive")
	}
}
