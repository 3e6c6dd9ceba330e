package chat_test

import (
	"testing"

	"zapcrm/messaging-gateway/internal/domain/chat"
	"zapcrm/messaging-gateway/internal/utils/gatewayerrors"
)

func TestNormalizeNumber(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain number", raw: "5511999999999", want: "5511999999999"},
		{name: "jid suffix", raw: "5511999999999@s.whatsapp.net", want: "5511999999999"},
		{name: "device part", raw: "5511999999999:12@s.whatsapp.net", want: "5511999999999"},
		{name: "leading plus", raw: "+5511999999999", want: "5511999999999"},
		{name: "surrounding whitespace", raw: "  5511999999999 ", want: "5511999999999"},
		{name: "empty", raw: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := chat.NormalizeNumber(tt.raw); got != tt.want {
				t.Errorf("NormalizeNumber(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestResolveContact(t *testing.T) {
	t.Run("normalizes before comparison", func(t *testing.T) {
		got, err := chat.ResolveContact("5511888888888@s.whatsapp.net", "5511999999999")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "5511888888888" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("rejects empty contact", func(t *testing.T) {
		_, err := chat.ResolveContact("", "5511999999999")
		if !gatewayerrors.IsType(err, gatewayerrors.TypeValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("rejects self conversation", func(t *testing.T) {
		_, err := chat.ResolveContact("5511999999999:2@s.whatsapp.net", "5511999999999")
		if !gatewayerrors.IsType(err, gatewayerrors.TypeValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("allows any contact when own number unknown", func(t *testing.T) {
		got, err := chat.ResolveContact("5511999999999", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "5511999999999" {
			t.Errorf("got %q", got)
		}
	})
}
