package headshot

import (
	"context"
	"errors"
	"testing"

	"github.com/fpang/synthetic-patients/internal/chat"
	"github.com/fpang/synthetic-patients/internal/chat/chattest"
)

func TestIsAffirmative(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"yes", true},
		{"Yes.", true},
		{"  YES, there is one person", true},
		{"**Yes**", true},
		{"yes\n", true},
		{"no", false},
		{"No, there are two people.", false},
		{"maybe", false},
		{"I think yes", false},
		{"yesterday", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsAffirmative(tt.in); got != tt.want {
			t.Errorf("IsAffirmative(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestVerifier_ErrorIsNo(t *testing.T) {
	v := NewVerifier(chattest.NewVision().Then(chattest.Reply{Err: errors.New("rate limited")}))
	if v.Ask(context.Background(), chat.Image{}, "Is it?") {
		t.Error("error answer should be false")
	}
}
