// Package auth implements ObjBase authentication: the legacy-exact digest
// and token derivations, and the structured session token.
package auth

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"strings"
	"time"

	apperrors "objbase.io/objbase/internal/pkg/errors"
)

// secretPepper is the fixed legacy secret folded into every derivation.
// Changing it invalidates every stored digest, so it is a constant, not
// configuration.
const secretPepper = "hz4R81tko6"

// XSRFLen is the length of a derived XSRF value in hex characters.
const XSRFLen = 22

// PasswordDigest derives the stored password digest for (username, password,
// namespace). Single SHA-1 pass over pepper + UPPER(username) + namespace +
// password, hex-encoded lower-case, 40 characters. Case-insensitive in
// username, order-sensitive in everything else.
func PasswordDigest(username, password, namespace string) (string, error) {
	if username == "" || password == "" || namespace == "" {
		return "", apperrors.InvalidArgument(apperrors.CodeBadRequest,
			"username, password and namespace are required")
	}
	h := sha1.Sum([]byte(secretPepper + strings.ToUpper(username) + namespace + password))
	return hex.EncodeToString(h[:]), nil
}

// XSRFToken derives the anti-forgery value bound to (token, namespace).
// Single SHA-1 pass over pepper + UPPER(token) + namespace + namespace,
// truncated to the first 22 hex characters. Pure, so any replica verifies
// an XSRF value without shared session storage.
func XSRFToken(token, namespace string) (string, error) {
	if token == "" || namespace == "" {
		return "", apperrors.InvalidArgument(apperrors.CodeBadRequest,
			"token and namespace are required")
	}
	h := sha1.Sum([]byte(secretPepper + strings.ToUpper(token) + namespace + namespace))
	return hex.EncodeToString(h[:])[:XSRFLen], nil
}

// OpaqueToken generates a 32-hex-char legacy session token from a monotonic
// time value and random bytes. Uniqueness is probabilistic; the users table
// unique constraint turns a collision into a Conflict at insert time.
func OpaqueToken() string {
	var seed [24]byte
	binary.BigEndian.PutUint64(seed[:8], uint64(time.Now().UnixNano()))
	// Entropy failure leaves the time prefix only; the unique constraint
	// still catches a collision.
	_, _ = rand.Read(seed[8:])
	h := md5.Sum(seed[:])
	return hex.EncodeToString(h[:])
}
