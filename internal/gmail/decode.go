package gmail

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrDecode reports a body that is not valid base64url.
var ErrDecode = errors.New("invalid base64url payload")

// DecodeBase64URL decodes RFC 4648 base64url with optional padding.
// Characters of the standard alphabet ('+', '/') are rejected.
func DecodeBase64URL(s string) ([]byte, error) {
	data, err := base64.RawURLEncoding.Strict().DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return data, nil
}
