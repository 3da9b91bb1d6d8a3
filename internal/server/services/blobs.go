package services

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/dmitrijs2005/mediavault/internal/cryptox"
)

// sealedBody is an upload ready for the object store.
type sealedBody struct {
	Body       []byte
	WrappedKey []byte
	Nonce      []byte
	Encrypted  bool
}

// blobCodec seals blobs at rest when a master key is configured and passes
// them through otherwise.
type blobCodec struct {
	masterKey []byte
}

func (c blobCodec) enabled() bool {
	return len(c.masterKey) > 0
}

func (c blobCodec) seal(data []byte) (*sealedBody, error) {
	if !c.enabled() {
		return &sealedBody{Body: data}, nil
	}
	b, err := cryptox.SealBlob(c.masterKey, data)
	if err != nil {
		return nil, err
	}
	return &sealedBody{Body: b.Ciphertext, WrappedKey: b.WrappedKey, Nonce: b.Nonce, Encrypted: true}, nil
}

func (c blobCodec) open(body, wrappedKey, nonce []byte, encrypted bool) ([]byte, error) {
	if !encrypted {
		return body, nil
	}
	return cryptox.OpenBlob(c.masterKey, body, wrappedKey, nonce)
}

// sealPacked seals a secondary blob, such as a thumbnail, into one object.
func (c blobCodec) sealPacked(data []byte) ([]byte, error) {
	if !c.enabled() {
		return data, nil
	}
	b, err := cryptox.SealBlob(c.masterKey, data)
	if err != nil {
		return nil, err
	}
	return b.Pack(), nil
}

func (c blobCodec) openPacked(data []byte, encrypted bool) ([]byte, error) {
	if !encrypted {
		return data, nil
	}
	return cryptox.OpenPacked(c.masterKey, data)
}

// sniffContentType checks data against allowed and against the type the
// client declared. It returns the detected type.
func sniffContentType(data []byte, declared string, allowed map[string]bool) (string, error) {
	detected, _, err := mime.ParseMediaType(http.DetectContentType(data))
	if err != nil || !allowed[detected] {
		return "", common.ErrUnsupportedMedia
	}

	if declared != "" {
		d, _, err := mime.ParseMediaType(declared)
		if err != nil {
			return "", common.ErrUnsupportedMedia
		}
		if d != detected && d != "application/octet-stream" {
			return "", common.ErrUnsupportedMedia
		}
	}
	return detected, nil
}

func checkUploadSize(data []byte) error {
	if len(data) == 0 {
		return common.ErrorValidation
	}
	if len(data) > common.MaxUploadSize {
		return common.ErrFileTooLarge
	}
	return nil
}

// cleanFileName strips any directory part a client sent with the name.
func cleanFileName(name, fallback string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" || base == "" {
		return fallback
	}
	return base
}
