package archive

import (
	"strings"
	"time"

	"github.com/teemow/inboxvault/internal/mail"
)

// UnknownDate is the date prefix used when the Date header is missing or unparsable.
const UnknownDate = "unknown-date"

const (
	dateLayout = "Mon, 2 Jan 2006 15:04:05"

	// Only this many leading bytes of the Date header are parsed, so any
	// zone suffix ("+0000", "+0000 (UTC)", "GMT") is ignored.
	dateHeaderPrefix = 25
)

// DatePrefix formats the send date of a Date header value as YYYY-MM-DD.
// It never fails: anything it cannot parse yields UnknownDate.
//
// The cut is not trimmed. A single-digit day leaves a trailing space in the
// prefix, which does not parse, so such messages keep the unknown-date keys
// already present in the bucket.
func DatePrefix(date string) string {
	if len(date) > dateHeaderPrefix {
		date = date[:dateHeaderPrefix]
	}
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return UnknownDate
	}
	return t.Format(time.DateOnly)
}

// SanitizeFilename replaces spaces, slashes, backslashes and ASCII control
// characters with underscores. Everything else is kept as is.
func SanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == ' ', r == '/', r == '\\':
			return '_'
		case r < 0x20, r == 0x7f:
			return '_'
		}
		return r
	}, name)
}

// StorageKey joins the key components. filename must already be sanitized.
func StorageKey(datePrefix, messageID, filename string) string {
	return datePrefix + "_" + messageID + "_" + filename
}

// DeriveKey returns the storage key for an attachment of msg.
func DeriveKey(msg *mail.Message, filename string) string {
	date, _ := msg.Header("Date")
	return StorageKey(DatePrefix(date), msg.ID, SanitizeFilename(filename))
}
