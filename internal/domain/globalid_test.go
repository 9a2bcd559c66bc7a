package domain

import (
	"encoding/base64"
	"errors"
	"testing"
)

func TestEncodeGlobalID(t *testing.T) {
	got := EncodeGlobalID(KindAccount, "1")
	if got != "QWNjb3VudDox" {
		t.Errorf("expected relay encoding, got %s", got)
	}
}

func TestDecodeAs(t *testing.T) {
	b64 := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name    string
		token   string
		kind    NodeKind
		want    string
		wantErr bool
	}{
		{name: "account", token: b64("Account:abc"), kind: KindAccount, want: "abc"},
		{name: "local id with colon", token: b64("Transaction:a:b"), kind: KindTransaction, want: "a:b"},
		{name: "wrong kind", token: b64("Transaction:abc"), kind: KindAccount, wantErr: true},
		{name: "not base64", token: "%%%", kind: KindAccount, wantErr: true},
		{name: "no separator", token: b64("Accountabc"), kind: KindAccount, wantErr: true},
		{name: "empty local id", token: b64("Account:"), kind: KindAccount, wantErr: true},
		{name: "empty", token: "", kind: KindAccount, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAs(tt.token, tt.kind)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidIDType) {
					t.Fatalf("expected ErrInvalidIDType, got %v", err)
				}
				if !errors.Is(err, ErrInvalidReference) {
					t.Fatalf("expected invalid reference category, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
