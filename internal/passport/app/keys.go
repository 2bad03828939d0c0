package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aussiebroadwan/passport/internal/passport/token"
)

// LoadKeys reads the signing key and any retired verification keys named
// by cfg. Without a signing key file an ephemeral key is generated and
// every token dies with the process.
func LoadKeys(cfg Config, logger *slog.Logger) (*token.Keys, error) {
	if cfg.SigningKeyFile == "" {
		keys, err := token.GenerateKeys()
		if err != nil {
			return nil, err
		}
		logger.Warn("using ephemeral signing key, tokens will not survive a restart", "kid", keys.KID())
		return keys, nil
	}

	privatePEM, err := os.ReadFile(filepath.Clean(cfg.SigningKeyFile))
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}

	extra := make([][]byte, 0, len(cfg.VerifyKeyFiles))
	for _, f := range cfg.VerifyKeyFiles {
		pem, err := os.ReadFile(filepath.Clean(f))
		if err != nil {
			return nil, fmt.Errorf("read verification key: %w", err)
		}
		extra = append(extra, pem)
	}

	keys, err := token.LoadKeys(privatePEM, extra...)
	if err != nil {
		return nil, err
	}
	logger.Info("signing keys loaded",
		"kid", keys.KID(),
		"verification_keys", len(keys.PublicKeys().PublicJWKS().Keys),
	)
	return keys, nil
}
