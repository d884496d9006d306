package engine

import (
	"encoding/base32"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/seedarr/seedarr/pkg/errors"
)

const btihPrefix = "urn:btih:"

// Magnet is a parsed magnet URI.
type Magnet struct {
	InfoHash    string
	DisplayName string
	Trackers    []string
}

// ParseMagnet parses a magnet URI and normalizes its info hash to lowercase hex.
func ParseMagnet(uri string) (Magnet, error) {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return Magnet{}, errors.NewValidationError("magnet", uri, err.Error())
	}
	if u.Scheme != "magnet" {
		return Magnet{}, errors.NewValidationError("magnet", uri, "scheme must be magnet")
	}

	q := u.Query()
	var hash string
	for _, xt := range q["xt"] {
		if strings.HasPrefix(strings.ToLower(xt), btihPrefix) {
			hash = xt[len(btihPrefix):]
			break
		}
	}
	if hash == "" {
		return Magnet{}, errors.NewValidationError("magnet", uri, "missing urn:btih exact topic")
	}

	normalized, ok := NormalizeInfoHash(hash)
	if !ok {
		return Magnet{}, errors.NewValidationError("magnet", uri, "invalid info hash")
	}

	return Magnet{
		InfoHash:    normalized,
		DisplayName: q.Get("dn"),
		Trackers:    q["tr"],
	}, nil
}

// NormalizeInfoHash accepts a 40 character hex or 32 character base32 v1
// info hash and returns it as lowercase hex.
func NormalizeInfoHash(s string) (string, bool) {
	switch len(s) {
	case 40:
		if _, err := hex.DecodeString(s); err != nil {
			return "", false
		}
		return strings.ToLower(s), true
	case 32:
		raw, err := base32.StdEncoding.DecodeString(strings.ToUpper(s))
		if err != nil {
			return "", false
		}
		return hex.EncodeToString(raw), true
	default:
		return "", false
	}
}

// ValidInfoHash reports whether s is a well-formed v1 info hash.
func ValidInfoHash(s string) bool {
	_, ok := NormalizeInfoHash(s)
	return ok
}
