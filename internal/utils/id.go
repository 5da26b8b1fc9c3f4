package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// NewConnID returns a best-effort unique connection identifier.
// Connection identifiers are compared lexicographically when two peers
// decide who initiates a WebRTC offer, so they must be plain ASCII.
func NewConnID() string {
	const size = 12

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}

	// Fallback to timestamp if crypto/rand is unavailable.
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}

// meetingIDAlphabet excludes lowercase so codes survive being read aloud.
const meetingIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewMeetingID returns a short shareable meeting code, e.g. "X7K2QF0D".
func NewMeetingID() string {
	const size = 8

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return strings.ToUpper(strconv.FormatInt(time.Now().UnixNano(), 36))[:size]
	}

	var b strings.Builder
	b.Grow(size)
	for _, c := range buf {
		b.WriteByte(meetingIDAlphabet[int(c)%len(meetingIDAlphabet)])
	}
	return b.String()
}
