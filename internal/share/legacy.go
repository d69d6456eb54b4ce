package share

import (
	"encoding/base64"
	"strings"
)

var legacyEncodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.URLEncoding,
	base64.RawStdEncoding,
	base64.RawURLEncoding,
}

// DecodeLegacy decodes the older uncompressed link format: base64 of the
// payload JSON. Query decoding turns '+' into ' ', so spaces are mapped back
// before decoding. The same strict shape check as Decode applies.
func DecodeLegacy(s string) (*Payload, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "+")
	if s == "" {
		return nil, false
	}
	for _, enc := range legacyEncodings {
		data, err := enc.DecodeString(s)
		if err != nil {
			continue
		}
		if p, ok := parsePayload(data); ok {
			return p, true
		}
	}
	return nil, false
}

// EncodeLegacy produces the legacy form. Only tests and migration tooling
// write it; the publisher never does.
func EncodeLegacy(p Payload) (string, error) {
	data, err := marshalPayload(p)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
