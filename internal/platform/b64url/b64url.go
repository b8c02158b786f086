// Package b64url transcodes binary handles to the URL-safe text form used at
// every client/server boundary: raw base64url, no padding.
package b64url

import (
	"encoding/base64"

	apperrors "github.com/manimate/passkey/internal/platform/errors"
)

var codec = base64.RawURLEncoding.Strict()

// Encode returns the URL-safe text form of raw bytes.
func Encode(raw []byte) string {
	return codec.EncodeToString(raw)
}

// Decode reverses Encode exactly.
//
// Inputs with characters outside the alphabet, padding, an impossible length,
// or non-canonical trailing bits fail with CodeMalformedEncoding rather than
// decoding to bytes no Encode call could have produced.
func Decode(encoded string) ([]byte, error) {
	raw, err := codec.DecodeString(encoded)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeMalformedEncoding, "decode base64url", err)
	}
	return raw, nil
}
