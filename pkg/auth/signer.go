package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudera/cdpcore/pkg/codec"
)

// Header names. The date header is generated by the signer; the auth
// header carries the metadata/signature pair.
const (
	HeaderDate = "x-altus-date"
	HeaderAuth = "x-altus-auth"
)

// dateFormat is RFC 1123 with an explicit GMT zone, the form the service
// expects in the date header.
const dateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// Signer injects the auth and date headers into prepared requests. Each
// Sign call produces a fresh date and signature, so a retried request must
// be re-signed, never replayed.
type Signer struct {
	keypair *Keypair
	now     func() time.Time
}

// NewSigner creates a Signer over frozen credentials.
func NewSigner(keypair *Keypair) *Signer {
	return &Signer{keypair: keypair, now: time.Now}
}

// CanonicalString assembles the exact byte sequence that gets signed. The
// header subset is fixed and ordered: content-type then the request date,
// with empty strings standing in for missing headers. The auth method is
// included so a signature cannot be replayed under a different method.
func CanonicalString(httpMethod, contentType, date, path string, method Method) string {
	return strings.Join([]string{
		strings.ToUpper(httpMethod),
		contentType,
		date,
		path,
		string(method),
	}, "\n")
}

// Sign computes the signature for the request and sets the date and auth
// headers. It is an error if either header is already present: a pre-set
// date or a second signature would mask a client bug.
func (s *Signer) Sign(req *codec.Request) error {
	if _, ok := headerLookup(req.Headers, HeaderDate); ok {
		return ErrDuplicateDateHeader
	}
	if _, ok := headerLookup(req.Headers, HeaderAuth); ok {
		return ErrDuplicateAuthHeader
	}

	date := s.now().UTC().Format(dateFormat)
	contentType, _ := headerLookup(req.Headers, "content-type")

	canonical := CanonicalString(req.Method, contentType, date, req.Path, s.keypair.method)
	signature, err := s.keypair.sign([]byte(canonical))
	if err != nil {
		return &Error{Code: ErrCodeBadKeyMaterial, Message: "signature computation failed", Cause: err}
	}

	metadata, err := json.Marshal(map[string]string{
		"access_key_id": s.keypair.accessKeyID,
		"auth_method":   string(s.keypair.method),
	})
	if err != nil {
		return fmt.Errorf("failed to encode auth metadata: %w", err)
	}

	req.Headers[HeaderDate] = date
	req.Headers[HeaderAuth] = fmt.Sprintf("%s.%s",
		base64.URLEncoding.EncodeToString(metadata),
		base64.URLEncoding.EncodeToString(signature))
	return nil
}

// headerLookup resolves a header case-insensitively from the prepared
// request's header map.
func headerLookup(headers map[string]string, name string) (string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}
