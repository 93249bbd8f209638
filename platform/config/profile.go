package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AgentProfile holds the company-facing wording of the assistant. Every field
// has a default so the file is optional.
type AgentProfile struct {
	// CompanyDescription completes "You are an AI-powered Sales Development
	// Representative (SDR) for ...".
	CompanyDescription string `yaml:"company_description"`
	// ProductName is how the product is referred to in prompts ("our CRM").
	ProductName   string `yaml:"product_name"`
	SupportEmail  string `yaml:"support_email"`
	TeamName      string `yaml:"team_name"`
	EmailSubject  string `yaml:"email_subject"`
	FollowUpHours int    `yaml:"follow_up_hours"`
}

// DefaultAgentProfile returns the built-in profile.
func DefaultAgentProfile() AgentProfile {
	return AgentProfile{
		CompanyDescription: "a SaaS company selling CRM solutions to streamline lead management and sales pipelines",
		ProductName:        "CRM",
		SupportEmail:       "support@example.com",
		TeamName:           "The AI SDR Team",
		EmailSubject:       "Your Request for Human Assistance",
		FollowUpHours:      24,
	}
}

// LoadAgentProfile reads a YAML profile from path and fills missing fields
// from the defaults. An empty path returns the defaults.
func LoadAgentProfile(path string) (AgentProfile, error) {
	profile := DefaultAgentProfile()
	if strings.TrimSpace(path) == "" {
		return profile, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("read agent profile: %w", err)
	}

	var loaded AgentProfile
	if err := yaml.Unmarshal(raw, &loaded); err != nil {
		return profile, fmt.Errorf("parse agent profile %s: %w", path, err)
	}

	mergeString(&profile.CompanyDescription, loaded.CompanyDescription)
	mergeString(&profile.ProductName, loaded.ProductName)
	mergeString(&profile.SupportEmail, loaded.SupportEmail)
	mergeString(&profile.TeamName, loaded.TeamName)
	mergeString(&profile.EmailSubject, loaded.EmailSubject)
	if loaded.FollowUpHours > 0 {
		profile.FollowUpHours = loaded.FollowUpHours
	}
	return profile, nil
}

func mergeString(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}
