package game

import (
	"crypto/rand"
)

// Alphabet without 0/O/1/I/L so ids survive being typed into chat.
const shortIDAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const shortIDLength = 6

// newShortID generates a random public session id. Uniqueness is enforced
// at commit time; callers retry on collision.
func newShortID() string {
	buf := make([]byte, shortIDLength)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = shortIDAlphabet[int(b)%len(shortIDAlphabet)]
	}
	return string(buf)
}
