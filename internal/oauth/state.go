package oauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// State signs the opaque state value carried through the provider
// round-trip so the callback can reject forged requests.
type State struct{ key []byte }

func NewState(secret string) *State { return &State{key: []byte(secret)} }

func (s *State) Make(raw string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(raw))
	return raw + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (s *State) Verify(got string) bool {
	i := strings.IndexByte(got, '.')
	if i < 0 {
		return false
	}
	sig, err := base64.RawURLEncoding.DecodeString(got[i+1:])
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(got[:i]))
	return hmac.Equal(mac.Sum(nil), sig)
}
