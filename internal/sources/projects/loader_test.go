package projects

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const projectsYAML = `---
projects:
  - id: shop
    name: Example Shop
    apiKey: ${SHOP_API_KEY}
    hosts: [links.example.com, "*.shop.example.com"]
    android:
      package: com.example.shop
      sha256CertFingerprints: ["14:6D:E9:83"]
    ios:
      appId: "123456789"
      bundleId: com.example.shop
      teamId: ABCDE12345
      paths: ["/p/*"]
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "projects.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}
	return path
}

func TestLoaderLoad(t *testing.T) {
	loader := NewLoader(writeFile(t, projectsYAML))
	loader.lookup = func(name string) (string, bool) {
		if name == "SHOP_API_KEY" {
			return "s3cret", true
		}
		return "", false
	}

	file, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(file.Projects) != 1 {
		t.Fatalf("Load() returned %d projects, want 1", len(file.Projects))
	}
	p := file.Projects[0]
	if p.APIKey != "s3cret" {
		t.Errorf("APIKey = %q, want expanded secret", p.APIKey)
	}
	if p.IOS.AppID != "123456789" || p.Android.Package != "com.example.shop" {
		t.Errorf("unexpected app identifiers: %+v", p)
	}
	if len(p.Hosts) != 2 {
		t.Errorf("Hosts = %v, want 2 entries", p.Hosts)
	}
}

func TestLoaderLoadUnsetVariable(t *testing.T) {
	loader := NewLoader(writeFile(t, projectsYAML))
	loader.lookup = func(string) (string, bool) { return "", false }

	_, err := loader.Load()
	if err == nil || !strings.Contains(err.Error(), "SHOP_API_KEY") {
		t.Fatalf("Load() error = %v, want unset variable error", err)
	}
}

func TestLoaderLoadFileNotFound(t *testing.T) {
	loader := NewLoader("/nonexistent/projects.yaml")
	if _, err := loader.Load(); err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoaderLoadInvalidYAML(t *testing.T) {
	loader := NewLoader(writeFile(t, "projects: [unclosed"))
	if _, err := loader.Load(); err == nil {
		t.Error("Load() should return error for invalid YAML")
	}
}
