package secret

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Verifier checks a presented key against a plain shared key or a bcrypt hash.
type Verifier struct {
	plain string
	hash  []byte
}

func NewVerifier(plain, hash string) *Verifier {
	return &Verifier{plain: strings.TrimSpace(plain), hash: []byte(strings.TrimSpace(hash))}
}

// Enabled reports whether any key is configured.
func (v *Verifier) Enabled() bool {
	return v != nil && (v.plain != "" || len(v.hash) > 0)
}

func (v *Verifier) Verify(presented string) bool {
	if !v.Enabled() {
		return true
	}
	if presented == "" {
		return false
	}
	if len(v.hash) > 0 {
		return bcrypt.CompareHashAndPassword(v.hash, []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(v.plain), []byte(presented)) == 1
}

func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
