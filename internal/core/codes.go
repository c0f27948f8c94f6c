package core

import (
	"crypto/rand"
	"errors"
	"math/big"

	"github.com/dkeye/imposter/internal/domain"
)

const (
	RoomCodeLength = 6
	// RoomCodeChars leaves out 0/O and 1/I/L.
	RoomCodeChars = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

	maxCodeAttempts = 64
)

var ErrCodeSpaceExhausted = errors.New("could not allocate a unique room code")

// CodeGenerator returns a candidate room code; uniqueness is checked by the Store.
type CodeGenerator func() (domain.RoomCode, error)

func RandomCode() (domain.RoomCode, error) {
	code := make([]byte, RoomCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(RoomCodeChars))))
		if err != nil {
			return "", err
		}
		code[i] = RoomCodeChars[n.Int64()]
	}
	return domain.RoomCode(code), nil
}
