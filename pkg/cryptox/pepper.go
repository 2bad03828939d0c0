package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const pepperLength = 32

// LoadOrGeneratePepper reads the password pepper from file, creating the
// file with a fresh random pepper when it does not exist yet. An empty path
// means "no pepper" and returns nil.
//
// The pepper must survive restarts: losing it invalidates every Argon2id
// hash in the credential store.
func LoadOrGeneratePepper(file string) ([]byte, error) {
	if file == "" {
		return nil, nil
	}

	file = filepath.Clean(file)
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		pepper := strings.TrimSpace(string(data))
		if pepper == "" {
			return nil, fmt.Errorf("cryptox: pepper file %s is empty", file)
		}
		return []byte(pepper), nil

	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(file), 0o750); err != nil {
			return nil, err
		}
		buf := make([]byte, pepperLength)
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		pepper := base64.RawURLEncoding.EncodeToString(buf)

		// O_EXCL so two processes starting together cannot clobber each other.
		f, err := os.OpenFile(file, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if _, err := f.WriteString(pepper); err != nil {
			return nil, err
		}
		return []byte(pepper), nil

	default:
		return nil, err
	}
}
