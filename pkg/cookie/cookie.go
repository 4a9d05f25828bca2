package cookie

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"golang.org/x/crypto/hkdf"
)

const (
	minSecretLength = 32
	// browsers drop cookies above 4096 bytes including name and attributes
	maxValueLength = 3800
	keyInfo        = "nectar/session-cookie/v1"
)

type Manager struct {
	aeads    []cipher.AEAD
	defaults Options
}

// New creates a Manager. Secrets must be at least 32 characters; the first
// one is used for sealing.
func New(secrets []string, opts ...Option) (*Manager, error) {
	secrets = slices.DeleteFunc(slices.Clone(secrets), func(s string) bool { return s == "" })
	if len(secrets) == 0 {
		return nil, ErrNoSecret
	}

	aeads := make([]cipher.AEAD, 0, len(secrets))
	for i, s := range secrets {
		if len(s) < minSecretLength {
			return nil, fmt.Errorf("%w: secret %d has %d chars, need at least %d", ErrSecretTooShort, i, len(s), minSecretLength)
		}
		aead, err := deriveAEAD(s)
		if err != nil {
			return nil, err
		}
		aeads = append(aeads, aead)
	}

	defaults := applyOptions(Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}, opts)

	return &Manager{aeads: aeads, defaults: defaults}, nil
}

func deriveAEAD(secret string) (cipher.AEAD, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encodes v as JSON and encrypts it.
func (m *Manager) Seal(v any) (string, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("cookie: marshal: %w", err)
	}

	aead := m.aeads[0]
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plain)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := base64.RawURLEncoding.EncodeToString(aead.Seal(nonce, nonce, plain, nil))
	if len(sealed) > maxValueLength {
		return "", ErrTooLarge
	}
	return sealed, nil
}

// Open decrypts a value produced by Seal into dest.
func (m *Manager) Open(sealed string, dest any) error {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return ErrInvalidFormat
	}

	for _, aead := range m.aeads {
		if len(raw) < aead.NonceSize() {
			return ErrInvalidFormat
		}
		nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
		plain, err := aead.Open(nil, nonce, ciphertext, nil)
		if err != nil {
			continue
		}
		if err := json.Unmarshal(plain, dest); err != nil {
			return errors.Join(ErrInvalidFormat, err)
		}
		return nil
	}

	return ErrDecryptionFailed
}

// SealedCookie seals v into a cookie carrying the manager's default
// attributes without writing it anywhere.
func (m *Manager) SealedCookie(name string, v any, opts ...Option) (*http.Cookie, error) {
	value, err := m.Seal(v)
	if err != nil {
		return nil, err
	}
	return m.cookie(name, value, applyOptions(m.defaults, opts)), nil
}

// SetSealed seals v and writes it as cookie name.
func (m *Manager) SetSealed(w http.ResponseWriter, name string, v any, opts ...Option) error {
	c, err := m.SealedCookie(name, v, opts...)
	if err != nil {
		return err
	}
	http.SetCookie(w, c)
	return nil
}

// GetSealed reads cookie name and opens it into dest.
func (m *Manager) GetSealed(r *http.Request, name string, dest any) error {
	c, err := r.Cookie(name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return ErrCookieNotFound
		}
		return err
	}
	return m.Open(c.Value, dest)
}

// Delete expires cookie name.
func (m *Manager) Delete(w http.ResponseWriter, name string) {
	c := m.cookie(name, "", m.defaults)
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}

func (m *Manager) cookie(name, value string, o Options) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     o.Path,
		Domain:   o.Domain,
		MaxAge:   o.MaxAge,
		Secure:   o.Secure,
		HttpOnly: o.HttpOnly,
		SameSite: o.SameSite,
	}
}
