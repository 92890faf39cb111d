package matching

import (
	"errors"
	"strings"

	"github.com/Shivanand-hulikatti/checkedin/internal/model"
)

const (
	// MessageLimit is the number of messages one nickname may send to
	// another at the same venue.
	MessageLimit = 3

	// MaxMessageLength is the maximum message length in characters.
	MaxMessageLength = 150
)

// ErrQuotaExceeded is returned when no messages remain for a pair.
var ErrQuotaExceeded = errors.New("message quota exceeded")

// ErrEmptyMessage is returned when a message is blank after trimming.
var ErrEmptyMessage = errors.New("message text is empty")

// GetQuota derives the quota from the number of messages already sent.
func GetQuota(sent, limit int) model.Quota {
	return model.Quota{
		Used:      sent,
		Remaining: max(0, limit-sent),
	}
}

// AfterSend re-derives q after exactly one accepted send.
func AfterSend(q model.Quota, limit int) model.Quota {
	return GetQuota(q.Used+1, limit)
}

// TrySend decides whether a message may be sent with the given remaining
// quota, and returns the text to persist: trimmed and cut to
// MaxMessageLength characters.
//
// Callers must re-count remaining immediately before the write; a value
// computed while the user was typing may be stale.
func TrySend(remaining int, text string) (string, error) {
	if remaining <= 0 {
		return "", ErrQuotaExceeded
	}
	text = Truncate(strings.TrimSpace(text), MaxMessageLength)
	if text == "" {
		return "", ErrEmptyMessage
	}
	return text, nil
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
