package validation

import (
	"math"
	"strings"
	"testing"

	"github.com/siohaza/haxgo/internal/errcode"
)

func TestChatLength(t *testing.T) {
	if err := Chat(strings.Repeat("a", 140)); err != nil {
		t.Fatalf("140 characters should pass: %v", err)
	}
	err := Chat(strings.Repeat("a", 141))
	if !errcode.Is(err, errcode.ChatActionMessageTooLongError) {
		t.Fatalf("expected ChatActionMessageTooLongError, got %v", err)
	}
	// multi-byte characters count once
	if err := Chat(strings.Repeat("ş", 140)); err != nil {
		t.Fatalf("140 two-byte characters should pass: %v", err)
	}
}

func TestFieldLimits(t *testing.T) {
	reason := strings.Repeat("r", 101)
	cases := []struct {
		err  error
		code errcode.Code
	}{
		{Announcement(strings.Repeat("x", 1001)), errcode.AnnouncementActionMessageTooLongError},
		{KickReason(&reason), errcode.KickBanReasonTooLongError},
		{PlayerName(strings.Repeat("n", 26)), errcode.PlayerNameTooLongError},
		{PlayerAvatar("abc"), errcode.PlayerAvatarTooLongError},
	}
	for _, c := range cases {
		if !errcode.Is(c.err, c.code) {
			t.Fatalf("expected %s, got %v", c.code, c.err)
		}
	}
	if err := KickReason(nil); err != nil {
		t.Fatalf("a missing reason is fine: %v", err)
	}
}

func TestFlagFolding(t *testing.T) {
	flag, err := PlayerFlag("ＴＲ")
	if err != nil || flag != "TR" {
		t.Fatalf("expected folded TR, got %q (%v)", flag, err)
	}
	if _, err := PlayerFlag("abcd"); !errcode.Is(err, errcode.PlayerCountryTooLongError) {
		t.Fatalf("expected PlayerCountryTooLongError, got %v", err)
	}
}

func TestNumbers(t *testing.T) {
	if ClampLimit(-3, MaxScoreLimit) != 0 || ClampLimit(20, MaxScoreLimit) != 14 || ClampLimit(5, 14) != 5 {
		t.Fatalf("clamp wrong")
	}
	if IsValidRadius(0) || IsValidRadius(math.NaN()) || !IsValidRadius(10) {
		t.Fatalf("radius checks wrong")
	}
	if IsValidDamping(1.01) || !IsValidDamping(0) || IsValidInvMass(-1) {
		t.Fatalf("damping or mass checks wrong")
	}
}

func TestTruncateReason(t *testing.T) {
	if got := TruncateReason("spam"); got != "spam" {
		t.Fatalf("short reason changed: %q", got)
	}
	long := strings.Repeat("ğ", 150)
	got := TruncateReason(long)
	if err := KickReason(&got); err != nil {
		t.Fatalf("truncated reason still rejected: %v", err)
	}
	if got != strings.Repeat("ğ", MaxReasonLength) {
		t.Fatalf("unexpected truncation %q", got)
	}
}
