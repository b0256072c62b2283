// Package auth computes the request signature the control plane
// authenticates with: a canonical string over the prepared request,
// signed with the caller's private key and framed as
// <base64url metadata>.<base64url signature> in a single auth header.
package auth

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"strings"

	jose "github.com/go-jose/go-jose/v4"
)

// Method names embedded in the canonical string and the auth metadata, so
// signatures are bound to the method that produced them.
type Method string

const (
	// MethodEd25519 signs the canonical string directly with Ed25519
	// (SHA-512 internally).
	MethodEd25519 Method = "ed25519v1"

	// MethodRSA signs a SHA-256 digest of the canonical string with
	// RSASSA-PKCS1-v1_5.
	MethodRSA Method = "rsav1"
)

// ed25519SeedLength is the base64 length of a raw 32-byte Ed25519 seed.
const ed25519SeedLength = 44

// Credentials is the raw material the collaborator layer loads: an access
// key id and private key text in one of three forms (base64 Ed25519 seed,
// PKCS#8/PKCS#1 PEM, or a JSON JWK).
type Credentials struct {
	AccessKeyID string
	PrivateKey  string
}

// Keypair is the frozen, resolved form of Credentials used inside
// signature computation. It captures the key material once, so concurrent
// or retried signing never observes a half-updated credential.
type Keypair struct {
	accessKeyID string
	method      Method
	sign        func(message []byte) ([]byte, error)
}

// Freeze detects the private-key format and resolves the credentials into
// an immutable Keypair.
func (c Credentials) Freeze() (*Keypair, error) {
	if c.AccessKeyID == "" || c.PrivateKey == "" {
		return nil, ErrMissingCredentials
	}
	material := strings.TrimSpace(c.PrivateKey)
	switch {
	case strings.HasPrefix(material, "{"):
		return freezeJWK(c.AccessKeyID, material)
	case strings.Contains(material, "-----BEGIN"):
		return freezePEM(c.AccessKeyID, material)
	case len(material) == ed25519SeedLength:
		return freezeSeed(c.AccessKeyID, material)
	}
	return nil, ErrBadKeyMaterial
}

// Method returns the signature method bound to the key.
func (k *Keypair) Method() Method {
	return k.method
}

// AccessKeyID returns the access key the signature is attributed to.
func (k *Keypair) AccessKeyID() string {
	return k.accessKeyID
}

func freezeSeed(accessKeyID, material string) (*Keypair, error) {
	seed, err := base64.StdEncoding.DecodeString(material)
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, &Error{Code: ErrCodeBadKeyMaterial, Message: "invalid ed25519 seed", Cause: err}
	}
	key := ed25519.NewKeyFromSeed(seed)
	return &Keypair{
		accessKeyID: accessKeyID,
		method:      MethodEd25519,
		sign: func(message []byte) ([]byte, error) {
			return ed25519.Sign(key, message), nil
		},
	}, nil
}

func freezePEM(accessKeyID, material string) (*Keypair, error) {
	block, _ := pem.Decode([]byte(material))
	if block == nil {
		return nil, &Error{Code: ErrCodeBadKeyMaterial, Message: "undecodable PEM block"}
	}
	var key any
	var err error
	if key, err = x509.ParsePKCS8PrivateKey(block.Bytes); err != nil {
		if key, err = x509.ParsePKCS1PrivateKey(block.Bytes); err != nil {
			return nil, &Error{Code: ErrCodeBadKeyMaterial, Message: "unparsable PEM private key", Cause: err}
		}
	}
	return keypairFor(accessKeyID, key)
}

// freezeJWK accepts a JSON Web Key, parsed through go-jose. The key type
// selects the signature method the same way the other formats do.
func freezeJWK(accessKeyID, material string) (*Keypair, error) {
	var jwk jose.JSONWebKey
	if err := json.Unmarshal([]byte(material), &jwk); err != nil {
		return nil, &Error{Code: ErrCodeBadKeyMaterial, Message: "unparsable JWK", Cause: err}
	}
	if jwk.IsPublic() {
		return nil, &Error{Code: ErrCodeBadKeyMaterial, Message: "JWK holds a public key, expected a private key"}
	}
	return keypairFor(accessKeyID, jwk.Key)
}

func keypairFor(accessKeyID string, key any) (*Keypair, error) {
	switch k := key.(type) {
	case ed25519.PrivateKey:
		return &Keypair{
			accessKeyID: accessKeyID,
			method:      MethodEd25519,
			sign: func(message []byte) ([]byte, error) {
				return ed25519.Sign(k, message), nil
			},
		}, nil
	case *rsa.PrivateKey:
		return &Keypair{
			accessKeyID: accessKeyID,
			method:      MethodRSA,
			sign: func(message []byte) ([]byte, error) {
				digest := sha256.Sum256(message)
				return rsa.SignPKCS1v15(rand.Reader, k, crypto.SHA256, digest[:])
			},
		}, nil
	default:
		return nil, &Error{Code: ErrCodeBadKeyMaterial, Message: fmt.Sprintf("unsupported private key type %T", key)}
	}
}
