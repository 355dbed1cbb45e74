package scan

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
)

// Digester computes the content digest stored in Fingerprint.MD5.
type Digester interface {
	Digest(r io.Reader) (string, error)
}

// MD5Digester hashes content with MD5 and returns it hex-encoded.
type MD5Digester struct{}

func (MD5Digester) Digest(r io.Reader) (string, error) {
	h := md5.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("reading content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
