package validate

import (
	"strings"
	"testing"
)

func TestPlayerName(t *testing.T) {
	if msg := PlayerName("Living room"); msg != "" {
		t.Errorf("expected no error, got %q", msg)
	}
	if msg := PlayerName(strings.Repeat("a", MaxPlayerNameLength)); msg != "" {
		t.Errorf("expected limit to be inclusive, got %q", msg)
	}
	msg := PlayerName(strings.Repeat("a", MaxPlayerNameLength+1))
	if msg != "player name must be 100 characters or fewer" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestUsername(t *testing.T) {
	if msg := Username(strings.Repeat("u", MaxUsernameLength+1)); msg == "" {
		t.Error("expected an error for an overlong username")
	}
}

func TestFieldLimits(t *testing.T) {
	limits := FieldLimits()
	if limits["playerName"] != MaxPlayerNameLength {
		t.Errorf("expected playerName limit %d, got %d", MaxPlayerNameLength, limits["playerName"])
	}
}
