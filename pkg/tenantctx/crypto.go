package tenantctx

import (
	"context"
	stdcipher "crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"os"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/codeready-toolchain/tarsy-ingest/pkg/apperrors"
	"github.com/codeready-toolchain/tarsy-ingest/pkg/config"
)

// systemSettingMasterKey is the SystemSetting row holding the base64-encoded
// master key, generated on first boot, per `tenant_config.py`'s
// `_get_or_create_encryption_key`.
const systemSettingMasterKey = "tenant_config_encryption_key"

// masterKeyLoader fetches and persists the system-wide encryption key,
// satisfied by entSettingsStore. A narrow interface so crypto_test.go can
// exercise key generation without a real ent client.
type masterKeyLoader interface {
	GetSystemSetting(ctx context.Context, key string) (string, bool, error)
	SetSystemSetting(ctx context.Context, key, value string) error
}

// cipher encrypts/decrypts tenant setting values at rest, lazily resolving
// and caching the master key on first use.
type cipher struct {
	store  masterKeyLoader
	envVar string

	mu   sync.Mutex
	aead stdcipher.AEAD
}

func newCipher(store masterKeyLoader, enc *config.EncryptionConfig) *cipher {
	envVar := "TARSY_INGEST_MASTER_KEY"
	if enc != nil && enc.MasterKeyEnv != "" {
		envVar = enc.MasterKeyEnv
	}
	return &cipher{store: store, envVar: envVar}
}

func (c *cipher) resolve(ctx context.Context) (stdcipher.AEAD, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.aead != nil {
		return c.aead, nil
	}

	key, err := c.loadOrGenerateKey(ctx)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "tenantctx", "failed to initialize cipher", err)
	}
	c.aead = aead
	return aead, nil
}

// loadOrGenerateKey prefers an operator-rotated key from the configured env
// var, falling back to the key persisted in SystemSetting, generating and
// persisting a fresh one if neither exists yet.
func (c *cipher) loadOrGenerateKey(ctx context.Context) ([]byte, error) {
	if raw := os.Getenv(c.envVar); raw != "" {
		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil || len(key) != chacha20poly1305.KeySize {
			return nil, apperrors.New(apperrors.KindConfiguration, "tenantctx",
				c.envVar+" must be a base64-encoded 32-byte key")
		}
		return key, nil
	}

	encoded, ok, err := c.store.GetSystemSetting(ctx, systemSettingMasterKey)
	if err != nil {
		return nil, err
	}
	if ok {
		key, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil || len(key) != chacha20poly1305.KeySize {
			return nil, apperrors.New(apperrors.KindInternal, "tenantctx", "stored master key is corrupt")
		}
		return key, nil
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "tenantctx", "failed to generate master key", err)
	}
	if err := c.store.SetSystemSetting(ctx, systemSettingMasterKey, base64.StdEncoding.EncodeToString(key)); err != nil {
		return nil, err
	}
	return key, nil
}

// encrypt returns a base64-encoded nonce||ciphertext, the standard
// AEAD-with-prefixed-nonce convention.
func (c *cipher) encrypt(ctx context.Context, plaintext string) (string, error) {
	aead, err := c.resolve(ctx)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", apperrors.Wrap(apperrors.KindInternal, "tenantctx", "failed to generate nonce", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *cipher) decrypt(ctx context.Context, encoded string) (string, error) {
	aead, err := c.resolve(ctx)
	if err != nil {
		return "", err
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindInternal, "tenantctx", "malformed ciphertext", err)
	}
	nonceSize := aead.NonceSize()
	if len(raw) < nonceSize {
		return "", apperrors.New(apperrors.KindInternal, "tenantctx", "ciphertext too short")
	}
	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindInternal, "tenantctx", "decryption failed", err)
	}
	return string(plaintext), nil
}
