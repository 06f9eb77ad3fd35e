// Package vault implements C7's encrypted, persisted credential store:
// a Postgres-backed table of AES-256-GCM-sealed secrets plus
// per-advisor enable flags, consulted only after the environment has
// been checked and found empty.
package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/crypto/hkdf"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ErrNotFound is returned when neither the environment nor the vault
// row has a value for a key.
var ErrNotFound = errors.New("vault: key not found")

// record is the sealed-secret table backing Get/Set; per-advisor flags
// live in their own table (advisorFlag).
type record struct {
	Key       string `gorm:"primaryKey"`
	Sealed    string
	UpdatedAt time.Time
}

func (record) TableName() string { return "vault_records" }

// advisorFlag is the per-advisor enable-flag row.
type advisorFlag struct {
	Advisor string `gorm:"primaryKey"`
	Enabled bool
}

func (advisorFlag) TableName() string { return "vault_advisor_flags" }

// Store is C7's lookup surface. Get always checks the process
// environment first; the encrypted table is the fallback.
type Store struct {
	db   *gorm.DB
	aead cipher.AEAD
}

// Open connects to dsn and derives the data-encryption key from
// passphrase via HKDF-SHA256, so the plaintext AES key is never
// persisted anywhere.
func Open(dsn, passphrase string) (*Store, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("vault: passphrase is required")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("vault: connect: %w", err)
	}
	if err := db.AutoMigrate(&record{}, &advisorFlag{}); err != nil {
		return nil, fmt.Errorf("vault: migrate: %w", err)
	}

	key, err := deriveKey(passphrase)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: new gcm: %w", err)
	}

	return &Store{db: db, aead: aead}, nil
}

func deriveKey(passphrase string) ([]byte, error) {
	reader := hkdf.New(sha256.New, []byte(passphrase), nil, []byte("rift-architect-vault"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("vault: derive key: %w", err)
	}
	return key, nil
}

// Get resolves a secret by key: envVar first, then the encrypted
// vault row.
func (s *Store) Get(ctx context.Context, envVar, key string) (string, error) {
	if v := os.Getenv(envVar); v != "" {
		return v, nil
	}

	var rec record
	if err := s.db.WithContext(ctx).First(&rec, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("vault: read: %w", err)
	}
	return s.open(rec.Sealed)
}

// Set encrypts and upserts value under key. C8's reload-key endpoint
// does not call it: that endpoint hands its credential straight to the
// scheduler without persisting it.
func (s *Store) Set(ctx context.Context, key, value string) error {
	sealed, err := s.seal(value)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Save(&record{Key: key, Sealed: sealed, UpdatedAt: time.Now()}).Error
}

// AdvisorEnabled reports whether an advisor kind is enabled, defaulting
// to true when no row exists: advisors are enabled unless explicitly
// disabled.
func (s *Store) AdvisorEnabled(ctx context.Context, advisorName string) bool {
	var flag advisorFlag
	if err := s.db.WithContext(ctx).First(&flag, "advisor = ?", advisorName).Error; err != nil {
		return true
	}
	return flag.Enabled
}

// SetAdvisorEnabled persists a per-advisor enable flag.
func (s *Store) SetAdvisorEnabled(ctx context.Context, advisorName string, enabled bool) error {
	return s.db.WithContext(ctx).Save(&advisorFlag{Advisor: advisorName, Enabled: enabled}).Error
}

func (s *Store) seal(value string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("vault: read nonce: %w", err)
	}
	ciphertext := s.aead.Seal(nil, nonce, []byte(value), nil)
	payload := append(nonce, ciphertext...)
	return base64.RawStdEncoding.EncodeToString(payload), nil
}

func (s *Store) open(sealed string) (string, error) {
	payload, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("vault: decode sealed value: %w", err)
	}
	nonceSize := s.aead.NonceSize()
	if len(payload) < nonceSize {
		return "", fmt.Errorf("vault: sealed value too short")
	}
	nonce, ciphertext := payload[:nonceSize], payload[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("vault: decrypt: %w", err)
	}
	return string(plaintext), nil
}

// Close releases the underlying database connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
