package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.PostHog.InstanceURL != "https://us.posthog.com" {
		t.Fatalf("instance url = %q", cfg.PostHog.InstanceURL)
	}
	if cfg.PostHog.PageLimit != 200 || cfg.PostHog.MaxPages != 5 {
		t.Fatalf("pagination defaults = %d/%d", cfg.PostHog.PageLimit, cfg.PostHog.MaxPages)
	}
	if cfg.Bulk.MinProperties != 160 || cfg.Bulk.MaxProperties != 170 {
		t.Fatalf("quality band defaults = %d-%d", cfg.Bulk.MinProperties, cfg.Bulk.MaxProperties)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motordata.yaml")
	content := `
posthog:
  project_id: "99"
  api_key: key-from-file
  page_limit: 50
bulk:
  min_properties: 100
  max_properties: 0
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PostHog.ProjectID != "99" || cfg.PostHog.APIKey != "key-from-file" {
		t.Fatalf("file values not applied: %+v", cfg.PostHog)
	}
	if cfg.PostHog.PageLimit != 50 {
		t.Fatalf("page_limit = %d", cfg.PostHog.PageLimit)
	}
	// Untouched fields keep their defaults.
	if cfg.PostHog.MaxPages != 5 {
		t.Fatalf("max_pages default lost: %d", cfg.PostHog.MaxPages)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "motordata.yaml")
	if err := os.WriteFile(path, []byte("posthog:\n  api_key: file-key\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POSTHOG_API_KEY", "env-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PostHog.APIKey != "env-key" {
		t.Fatalf("env override lost: %q", cfg.PostHog.APIKey)
	}
}

func TestLoadMissingOptionalFile(t *testing.T) {
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("missing default file should not error: %v", err)
	}
	if cfg.PostHog.PageLimit != 200 {
		t.Fatalf("defaults not applied: %+v", cfg.PostHog)
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("explicitly named missing file must error")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing api key")
	}
	cfg.PostHog.APIKey = "k"
	cfg.PostHog.ProjectID = "1"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.Bulk.MaxProperties = 10
	cfg.Bulk.MinProperties = 20
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for inverted quality band")
	}
}
