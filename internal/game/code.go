package game

import (
	"crypto/rand"
)

// codeAlphabet omits 0/O/1/I so codes survive being read off a screen.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the length of a session join code.
const CodeLength = 6

// NewSessionCode generates a 6-character human-enterable join code.
func NewSessionCode() string {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		panic("game: crypto/rand unavailable: " + err.Error())
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}
