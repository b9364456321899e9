// Package cache provides content fingerprinting and the single-flight
// cache store that guarantees at-most-once compression per input.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// FingerprintConfig enumerates the configuration fields that can change the
// compressed artifact. Anything that only affects how fast the result is
// produced (batch size, concurrency, retries, TTL) stays out of the key.
type FingerprintConfig struct {
	OCRMode           string
	OCREndpoint       string
	PIIScrubbing      bool
	TokenizerEncoding string
	FormatVersion     string
}

// Fingerprint computes the content-derived cache key for a (file bytes,
// configuration) pair: SHA-256 over the bytes plus a canonical serialization
// of the output-affecting configuration.
func Fingerprint(fileBytes []byte, cfg FingerprintConfig) string {
	h := sha256.New()
	h.Write(fileBytes)
	fmt.Fprintf(h, "\x00ocr_mode=%s\x00ocr_endpoint=%s\x00pii=%t\x00tokenizer=%s\x00format=%s",
		cfg.OCRMode, cfg.OCREndpoint, cfg.PIIScrubbing, cfg.TokenizerEncoding, cfg.FormatVersion)
	return hex.EncodeToString(h.Sum(nil))
}
