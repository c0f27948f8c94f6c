// Package domain contains identifiers and value types shared by every layer, without game logic.
package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MinNameLen = 1
	MaxNameLen = 20
)

type (
	PlayerID string
	// ConnID identifies one transport connection. A player keeps its PlayerID
	// across reconnects while its ConnID is rebound.
	ConnID string
)

func NewPlayerID() PlayerID { return PlayerID(uuid.NewString()) }

func NewConnID() ConnID { return ConnID(uuid.NewString()) }

// NormalizeName trims the display name and checks its length in runes.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < MinNameLen || n > MaxNameLen {
		return "", ErrNameLengthInvalid
	}
	return name, nil
}

// SameName compares display names the way the room does: case-insensitively.
func SameName(a, b string) bool {
	return strings.EqualFold(a, b)
}

func TrimName(name string) string { return strings.TrimSpace(name) }
