// Package security sella secretos en reposo (frases de certificado, claves
// SOL) con NaCl secretbox (XSalsa20-Poly1305).
package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// Sealer cifra y descifra secretos con una clave simétrica de 32 bytes.
type Sealer struct {
	key [32]byte
}

// NewSealer construye el sellador a partir de la clave en hex (64 caracteres).
func NewSealer(hexKey string) (*Sealer, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("seal key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("seal key: se esperaban 32 bytes, llegaron %d", len(raw))
	}
	s := &Sealer{}
	copy(s.key[:], raw)
	return s, nil
}

// Seal cifra plaintext con un nonce aleatorio que queda antepuesto al sello.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generar nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &s.key), nil
}

// Open descifra un sello producido por Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize {
		return nil, errors.New("sello truncado")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, errors.New("sello inválido o clave incorrecta")
	}
	return plain, nil
}

// SealString sella un secreto de texto.
func (s *Sealer) SealString(plaintext string) ([]byte, error) {
	return s.Seal([]byte(plaintext))
}

// OpenString abre un sello y lo devuelve como texto.
func (s *Sealer) OpenString(sealed []byte) (string, error) {
	plain, err := s.Open(sealed)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
