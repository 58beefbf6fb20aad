package domain

import (
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		signal string
		want   Platform
	}{
		{name: "android phone", signal: "Mozilla/5.0 (Linux; Android 14; Pixel 8) Chrome/120 Mobile", want: Android},
		{name: "iphone", signal: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Safari", want: IOS},
		{name: "ipad", signal: "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X)", want: IOS},
		{name: "platform descriptor", signal: "iPod", want: IOS},
		{name: "both markers prefers android", signal: "Android iPhone", want: Android},
		{name: "case insensitive", signal: "ANDROID", want: Android},
		{name: "desktop", signal: "Mozilla/5.0 (Windows NT 10.0; Win64; x64)", want: Other},
		{name: "empty", signal: "", want: Other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.signal); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.signal, got, tt.want)
			}
		})
	}
}

func TestPlatformValid(t *testing.T) {
	for _, p := range []Platform{Android, IOS, Other} {
		if !p.Valid() {
			t.Errorf("%q should be valid", p)
		}
	}
	if Platform("windows").Valid() {
		t.Error("windows should not be a valid platform")
	}
	if Other.IsMobile() {
		t.Error("desktop is not mobile")
	}
}

func TestDescribeClient(t *testing.T) {
	tests := []struct {
		ua   string
		want ClientInfo
	}{
		{
			ua:   "Mozilla/5.0 (Linux; Android 14) AppleWebKit/537.36 Chrome/120.0 Mobile Safari/537.36",
			want: ClientInfo{OS: "Android", Browser: "Chrome", DeviceType: "mobile"},
		},
		{
			ua:   "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Version/17.0 Safari/604.1",
			want: ClientInfo{OS: "iOS", Browser: "Safari", DeviceType: "tablet"},
		},
		{
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36 Edg/120.0",
			want: ClientInfo{OS: "Windows", Browser: "Edge", DeviceType: "desktop"},
		},
		{
			ua:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 14.0; rv:121.0) Gecko/20100101 Firefox/121.0",
			want: ClientInfo{OS: "macOS", Browser: "Firefox", DeviceType: "desktop"},
		},
		{
			ua:   "curl/8.4.0",
			want: ClientInfo{OS: "unknown", Browser: "unknown", DeviceType: "desktop"},
		},
	}

	for _, tt := range tests {
		if got := DescribeClient(tt.ua); got != tt.want {
			t.Errorf("DescribeClient(%q) = %+v, want %+v", tt.ua, got, tt.want)
		}
	}
}

func TestConfiguration(t *testing.T) {
	cfg := Configuration{
		CustomScheme:   "shop://",
		AndroidPackage: "com.example.shop",
		IOSAppID:       "123456789",
		FallbackURL:    "https://example.com",
		APIBaseURL:     "https://api.example.com/",
	}.WithDefaults()

	if cfg.Timeout != DefaultProbeTimeout {
		t.Errorf("Timeout = %v, want default %v", cfg.Timeout, DefaultProbeTimeout)
	}
	if cfg.APIBaseURL != "https://api.example.com" {
		t.Errorf("APIBaseURL = %q, trailing slash should be trimmed", cfg.APIBaseURL)
	}
	if got := cfg.DeepLinkURI("product/1"); got != "shop://product/1" {
		t.Errorf("DeepLinkURI = %q", got)
	}

	storeTests := []struct {
		name string
		cfg  Configuration
		p    Platform
		want string
	}{
		{name: "play store", cfg: cfg, p: Android, want: "https://play.google.com/store/apps/details?id=com.example.shop"},
		{name: "app store", cfg: cfg, p: IOS, want: "https://apps.apple.com/app/id123456789"},
		{name: "desktop", cfg: cfg, p: Other, want: "https://example.com"},
		{name: "no ios id", cfg: Configuration{AndroidPackage: "a", FallbackURL: "https://f"}, p: IOS, want: "https://f"},
	}
	for _, tt := range storeTests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.StoreURL(tt.p); got != tt.want {
				t.Errorf("StoreURL(%q) = %q, want %q", tt.p, got, tt.want)
			}
		})
	}

	if got := (Configuration{AndroidPackage: "com.a"}).PackageFor(IOS); got != "com.a" {
		t.Errorf("PackageFor(ios) without ios id = %q, want android package", got)
	}
	if got := cfg.PackageFor(IOS); got != "123456789" {
		t.Errorf("PackageFor(ios) = %q", got)
	}
	if got := (Configuration{IOSAppID: "9"}).PackageFor(Android); got != "9" {
		t.Errorf("PackageFor(android) without package = %q, want ios id", got)
	}
	if (Configuration{Timeout: time.Second}).WithDefaults().Timeout != time.Second {
		t.Error("explicit timeout must be kept")
	}
}

func TestValidateParameters(t *testing.T) {
	if err := ValidateParameters(map[string]any{"s": "x", "n": 3.5, "i": 2, "b": true}); err != nil {
		t.Errorf("scalar parameters rejected: %v", err)
	}
	if err := ValidateParameters(map[string]any{"list": []any{1}}); err == nil {
		t.Error("list parameter should be rejected")
	}
	if err := ValidateParameters(map[string]any{"nil": nil}); err == nil {
		t.Error("nil parameter should be rejected")
	}
}
