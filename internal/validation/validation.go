package validation

import (
	"math"
	"unicode/utf8"

	"golang.org/x/text/width"

	"github.com/siohaza/haxgo/internal/errcode"
)

const (
	MaxChatLength         = 140
	MaxAnnouncementLength = 1000
	MaxReasonLength       = 100
	MaxNameLength         = 25
	MaxFlagLength         = 3
	MaxAvatarLength       = 2

	MaxScoreLimit = 14
	MaxTimeLimit  = 14
)

func tooLong(s string, limit int, code errcode.Code) error {
	if n := utf8.RuneCountInString(s); n > limit {
		return errcode.New(code, n, limit)
	}
	return nil
}

func Chat(text string) error {
	return tooLong(text, MaxChatLength, errcode.ChatActionMessageTooLongError)
}

func Announcement(text string) error {
	return tooLong(text, MaxAnnouncementLength, errcode.AnnouncementActionMessageTooLongError)
}

func KickReason(reason *string) error {
	if reason == nil {
		return nil
	}
	return tooLong(*reason, MaxReasonLength, errcode.KickBanReasonTooLongError)
}

// TruncateReason cuts a kick reason down to MaxReasonLength characters so
// that a kick the host issues itself always passes KickReason.
func TruncateReason(reason string) string {
	if utf8.RuneCountInString(reason) <= MaxReasonLength {
		return reason
	}
	return string([]rune(reason)[:MaxReasonLength])
}

func PlayerName(name string) error {
	return tooLong(name, MaxNameLength, errcode.PlayerNameTooLongError)
}

// PlayerFlag folds full-width letters to their ASCII form before the length
// check and returns the folded flag.
func PlayerFlag(flag string) (string, error) {
	flag = width.Fold.String(flag)
	return flag, tooLong(flag, MaxFlagLength, errcode.PlayerCountryTooLongError)
}

func PlayerAvatar(avatar string) error {
	return tooLong(avatar, MaxAvatarLength, errcode.PlayerAvatarTooLongError)
}

// ClampLimit keeps a score or time limit inside [0, max].
func ClampLimit(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func IsValidRadius(r float64) bool {
	return IsFinite(r) && r > 0
}

func IsValidDamping(d float64) bool {
	return IsFinite(d) && d >= 0 && d <= 1
}

func IsValidInvMass(m float64) bool {
	return IsFinite(m) && m >= 0
}
