package share

import (
	"fmt"

	lzstring "github.com/daku10/go-lz-string"
)

// Encode serialises p to JSON and compresses it into a string that can be
// placed in a URL fragment as is. The output is compatible with lz-string's
// compressToEncodedURIComponent, which browser readers use to decode it.
func Encode(p Payload) (string, error) {
	data, err := marshalPayload(p)
	if err != nil {
		return "", err
	}
	blob, err := lzstring.CompressToEncodedURIComponent(string(data))
	if err != nil {
		return "", fmt.Errorf("share: compress: %w", err)
	}
	return blob, nil
}

// Decode reverses Encode. It reports false for anything that does not
// decompress to a valid current-version payload; it never panics.
func Decode(blob string) (p *Payload, ok bool) {
	if blob == "" {
		return nil, false
	}
	defer func() {
		if recover() != nil {
			p, ok = nil, false
		}
	}()

	data, err := lzstring.DecompressFromEncodedURIComponent(blob)
	if err != nil || data == "" {
		return nil, false
	}
	return parsePayload([]byte(data))
}
