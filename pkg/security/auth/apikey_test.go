package auth

import (
	"errors"
	"testing"
)

func TestValidator_Validate(t *testing.T) {
	v := NewValidator([]*KeyInfo{
		{Key: "cpr-editor", Client: "editor", Enabled: true},
		{Key: "cpr-old", Client: "retired", Enabled: false},
	})

	tests := []struct {
		name       string
		key        string
		wantClient string
		wantErr    error
	}{
		{name: "enabled key", key: "cpr-editor", wantClient: "editor"},
		{name: "disabled key", key: "cpr-old", wantErr: ErrKeyDisabled},
		{name: "unknown key", key: "cpr-nope", wantErr: ErrInvalidKey},
		{name: "empty key", key: "", wantErr: ErrMissingKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := v.Validate(tt.key)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
			if info.Client != tt.wantClient {
				t.Errorf("Client = %q, want %q", info.Client, tt.wantClient)
			}
		})
	}
}

func TestValidator_AddRemove(t *testing.T) {
	v := NewValidator(nil)
	if len(v.List()) != 0 {
		t.Fatal("new validator should be empty")
	}

	v.Add(&KeyInfo{Key: "k1", Client: "a", Enabled: true})
	v.Add(&KeyInfo{Key: "k2", Client: "b", Enabled: true})
	if got := len(v.List()); got != 2 {
		t.Fatalf("List() = %d keys, want 2", got)
	}

	v.Add(&KeyInfo{Key: "k1", Client: "a2", Enabled: true})
	info, err := v.Validate("k1")
	if err != nil || info.Client != "a2" {
		t.Errorf("replaced key: info = %+v, err = %v", info, err)
	}

	v.Remove("k1")
	v.Remove("missing")
	if _, err := v.Validate("k1"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("removed key still valid: %v", err)
	}
	if got := len(v.List()); got != 1 {
		t.Errorf("List() = %d keys, want 1", got)
	}
}
