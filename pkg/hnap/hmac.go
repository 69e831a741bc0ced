// Package hnap implements the HNAP JSON challenge-response protocol used by
// several cable modem chipsets, including the HMAC token computations.
package hnap

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Algorithm selects the HMAC digest. It is fixed per modem model; there is
// no runtime negotiation.
type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA256 Algorithm = "sha256"
)

// ParseAlgorithm maps a configuration string to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md5":
		return MD5, nil
	case "sha256", "sha-256":
		return SHA256, nil
	}
	return "", fmt.Errorf("unknown HNAP HMAC algorithm %q", s)
}

// ComputeDigest returns the uppercase hex HMAC of message under key: 32
// characters for MD5, 64 for SHA-256. Pure function.
func ComputeDigest(alg Algorithm, key, message string) string {
	var mac []byte
	switch alg {
	case SHA256:
		h := hmac.New(sha256.New, []byte(key))
		h.Write([]byte(message))
		mac = h.Sum(nil)
	default:
		h := hmac.New(md5.New, []byte(key))
		h.Write([]byte(message))
		mac = h.Sum(nil)
	}
	return strings.ToUpper(hex.EncodeToString(mac))
}

// PrivateKey derives the session private key from the login challenge.
func PrivateKey(alg Algorithm, publicKey, password, challenge string) string {
	return ComputeDigest(alg, publicKey+password, challenge)
}

// LoginPassword derives the password token submitted in the second Login
// call.
func LoginPassword(alg Algorithm, privateKey, challenge string) string {
	return ComputeDigest(alg, privateKey, challenge)
}

// AuthToken builds the HNAP_AUTH header value for an authenticated call:
// an HMAC over timestamp+SOAP action URI, followed by the timestamp.
func AuthToken(alg Algorithm, privateKey, soapActionURI string, unixMillis int64) string {
	ts := unixMillis % 2_000_000_000_000
	digest := ComputeDigest(alg, privateKey, fmt.Sprintf("%d%s", ts, soapActionURI))
	return fmt.Sprintf("%s %d", digest, ts)
}
