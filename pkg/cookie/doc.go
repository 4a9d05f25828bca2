// Package cookie seals small JSON payloads into first-party cookies.
//
// Payloads are encrypted with AES-256-GCM under keys derived from the
// configured secrets with HKDF-SHA256. The first secret seals; every secret is
// tried when opening, so secrets can be rotated by prepending a new one.
// A cookie that fails to open is reported as ErrDecryptionFailed and should
// be treated by callers as absent.
package cookie
