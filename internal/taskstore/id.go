package taskstore

import (
	"crypto/rand"
	"math/big"
)

const (
	autoIDChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	autoIDLength = 20
)

// NewDocumentID returns a random 20-character id in the same shape Firestore
// assigns to added documents.
func NewDocumentID() (string, error) {
	b := make([]byte, autoIDLength)
	max := big.NewInt(int64(len(autoIDChars)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = autoIDChars[idx.Int64()]
	}
	return string(b), nil
}
