// Package format renders backend values for display.
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"prema-client/internal/models"
)

const (
	milesPerKm    = 0.621371
	feetPerMile   = 5280
	timestampGap  = 5 * time.Minute
	maxUnreadShow = 99
)

// Distance renders a candidate distance: feet under a mile, else miles to
// one decimal. Unknown or zero distances render as "".
func Distance(km *float64) string {
	if km == nil || *km == 0 {
		return ""
	}
	miles := *km * milesPerKm
	if miles < 1 {
		return fmt.Sprintf("%d feet away", int(math.Round(miles*feetPerMile)))
	}
	return fmt.Sprintf("%.1f miles away", miles)
}

// ApproxDistance is the coarse form used on compact cards.
func ApproxDistance(km *float64) string {
	if km == nil || *km == 0 {
		return ""
	}
	miles := *km * milesPerKm
	if miles < 1 {
		return "Less than a mile away"
	}
	return fmt.Sprintf("%d miles away", int(math.Round(miles)))
}

// MessageTime renders a chat bubble timestamp relative to now.
func MessageTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	default:
		return t.In(now.Location()).Format("Jan 2")
	}
}

// ConversationTime renders the last-message time in the conversation list:
// clock time today, weekday within a week, else the date.
func ConversationTime(t, now time.Time) string {
	d := now.Sub(t)
	local := t.In(now.Location())
	switch {
	case d < 24*time.Hour:
		return local.Format("15:04")
	case d < 7*24*time.Hour:
		return local.Format("Mon")
	default:
		return local.Format("Jan 2")
	}
}

// MatchTime renders when a match happened.
func MatchTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Hour:
		return "Just now"
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	default:
		return t.In(now.Location()).Format("Jan 2")
	}
}

// MemberSince renders an account creation date.
func MemberSince(t time.Time) string {
	return t.Format("January 2, 2006")
}

// ShowTimestamp reports whether message i starts a new time group: the
// first message, or one sent more than five minutes after its predecessor.
func ShowTimestamp(msgs []models.Message, i int) bool {
	if i <= 0 || i >= len(msgs) {
		return i == 0
	}
	return msgs[i].Timestamp.Sub(msgs[i-1].Timestamp.Time) > timestampGap
}

// Initials takes the upper-cased first letter of the first two words.
func Initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(r))
		if utf8.RuneCountInString(b.String()) == 2 {
			break
		}
	}
	return b.String()
}

// UnreadBadge caps an unread count at "99+". Zero renders as "".
func UnreadBadge(n int) string {
	switch {
	case n <= 0:
		return ""
	case n > maxUnreadShow:
		return "99+"
	default:
		return strconv.Itoa(n)
	}
}

// PhotoURL resolves a backend-relative upload path against baseURL. Absolute
// URLs pass through.
func PhotoURL(baseURL, photo string) string {
	if strings.HasPrefix(photo, "/uploads/") || strings.HasPrefix(photo, "uploads/") {
		return strings.TrimRight(baseURL, "/") + "/" + strings.TrimPrefix(photo, "/")
	}
	return photo
}
