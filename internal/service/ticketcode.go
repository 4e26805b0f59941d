package service

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ticketCodeRandomBytes is the size of the random part of a ticket code.
const ticketCodeRandomBytes = 5

// NewTicketCode returns a customer facing code such as "TK-LU4Z6W1K-9F03A2C4D1".
// The base36 millisecond part keeps codes roughly sortable by issue time;
// the random part makes codes issued in the same millisecond distinct.
func NewTicketCode(now time.Time) (string, error) {
	suffix, err := randomHex(ticketCodeRandomBytes)
	if err != nil {
		return "", err
	}
	ms := strconv.FormatInt(now.UnixMilli(), 36)
	return "TK-" + strings.ToUpper(ms) + "-" + strings.ToUpper(suffix), nil
}

// NewTicketID returns a time-ordered UUIDv7.
func NewTicketID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// randomHex generates a random hexadecimal string of length n*2.
func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
