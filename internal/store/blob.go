package store

import (
	"fmt"

	xunicode "golang.org/x/text/encoding/unicode"
)

// utf16le is the blob encoding used by Windows generic credentials. Git,
// Mercurial and the Gradle plugins all read the password back as a wide
// string whose length is the blob size divided by two.
var utf16le = xunicode.UTF16(xunicode.LittleEndian, xunicode.IgnoreBOM)

// EncodeUTF16 returns the password as UTF-16LE without a terminator
func EncodeUTF16(s string) ([]byte, error) {
	b, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode secret: %w", err)
	}
	return b, nil
}

// DecodeUTF16 reverses EncodeUTF16. An odd trailing byte is dropped, the
// same way a wide-string read of blobSize/2 characters would.
func DecodeUTF16(b []byte) (string, error) {
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}
	s, err := utf16le.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode secret: %w", err)
	}
	return string(s), nil
}
