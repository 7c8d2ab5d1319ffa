package config

import (
	"sync"
	"testing"
)

func resetGlobalConfig() {
	configMutex.Lock()
	globalConfig = nil
	configMutex.Unlock()
	initOnce = sync.Once{}
}

func TestInitialize(t *testing.T) {
	resetGlobalConfig()
	defer resetGlobalConfig()

	path := writeConfigFile(t, `
rules:
  fallback: "allow"
`)

	if err := Initialize(path); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	cfg := GetConfig()
	if cfg == nil || cfg.Rules.Fallback != "allow" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	// Second call is a no-op.
	if err := Initialize("/nonexistent.yaml"); err != nil {
		t.Errorf("second Initialize should be a no-op, got %v", err)
	}
}

func TestInitialize_Error(t *testing.T) {
	resetGlobalConfig()
	defer resetGlobalConfig()

	if err := Initialize("/nonexistent.yaml"); err == nil {
		t.Fatal("expected error")
	}
	if GetConfig() != nil {
		t.Error("config should remain unset")
	}
}

func TestReloadConfig_KeepsOldOnFailure(t *testing.T) {
	resetGlobalConfig()
	defer resetGlobalConfig()

	SetConfig(Defaults())
	before := GetConfig()

	bad := writeConfigFile(t, `rules: {fallback: "nope"}`)
	if err := ReloadConfig(bad); err == nil {
		t.Fatal("expected reload error")
	}
	if GetConfig() != before {
		t.Error("failed reload must keep the previous config")
	}

	good := writeConfigFile(t, `rules: {fallback: "allow"}`)
	if err := ReloadConfig(good); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if GetConfig().Rules.Fallback != "allow" {
		t.Error("reload did not apply")
	}
}

func TestMustGetConfig_Panics(t *testing.T) {
	resetGlobalConfig()
	defer resetGlobalConfig()

	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustGetConfig()
}
