package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAgentProfileMergesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	body := "company_description: a payroll startup\nsupport_email: help@payroll.test\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	profile, err := LoadAgentProfile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.CompanyDescription != "a payroll startup" {
		t.Fatalf("expected overridden description, got %q", profile.CompanyDescription)
	}
	if profile.SupportEmail != "help@payroll.test" {
		t.Fatalf("expected overridden support email, got %q", profile.SupportEmail)
	}
	if profile.TeamName != DefaultAgentProfile().TeamName {
		t.Fatalf("expected default team name, got %q", profile.TeamName)
	}
}

func TestLoadAgentProfileEmptyPath(t *testing.T) {
	profile, err := LoadAgentProfile("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile != DefaultAgentProfile() {
		t.Fatalf("expected defaults, got %+v", profile)
	}
}

func TestLoadRequiresLLMKeyAndKnownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("LLM_API_KEY", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected missing LLM_API_KEY to fail")
	}

	t.Setenv("LLM_API_KEY", "k")
	t.Setenv("STORE_DRIVER", "mongo")
	if _, err := Load(); err == nil {
		t.Fatal("expected unknown store driver to fail")
	}

	t.Setenv("STORE_DRIVER", "memory")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GetFAQTopK() != 2 || cfg.GetEscalationMinTurns() != 6 || cfg.GetHistoryTokenBudget() != 3000 {
		t.Fatalf("unexpected pipeline defaults: %+v", cfg)
	}
	if cfg.GetLLMBaseURL() != "https://openrouter.ai/api/v1" {
		t.Fatalf("unexpected LLM base url %q", cfg.GetLLMBaseURL())
	}
}
