package domain

import "strings"

// Platform is the device family a visitor was classified into.
type Platform string

const (
	// Android is the first mobile family; it wins when both markers match.
	Android Platform = "android"
	// IOS is the second mobile family.
	IOS Platform = "ios"
	// Other covers desktop and anything unclassified.
	Other Platform = "desktop"
)

// IsMobile reports whether p is one of the two mobile families.
func (p Platform) IsMobile() bool { return p == Android || p == IOS }

// Valid reports whether p is a known platform value.
func (p Platform) Valid() bool { return p.IsMobile() || p == Other }

// Classify maps a user-agent or platform descriptor to a Platform using
// case-insensitive substring matching.
func Classify(signal string) Platform {
	s := strings.ToLower(signal)
	switch {
	case strings.Contains(s, "android"):
		return Android
	case strings.Contains(s, "iphone"), strings.Contains(s, "ipad"), strings.Contains(s, "ipod"):
		return IOS
	default:
		return Other
	}
}

// ClientInfo is a coarse description of a user agent.
type ClientInfo struct {
	OS         string `json:"os"`
	Browser    string `json:"browser"`
	DeviceType string `json:"deviceType"`
}

// DescribeClient derives OS, browser and device type from a user agent.
// Unknown values are reported as "unknown"; device type defaults to desktop.
func DescribeClient(userAgent string) ClientInfo {
	ua := strings.ToLower(userAgent)
	info := ClientInfo{OS: "unknown", Browser: "unknown", DeviceType: "desktop"}

	switch {
	case strings.Contains(ua, "android"):
		info.OS, info.DeviceType = "Android", "mobile"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipod"):
		info.OS, info.DeviceType = "iOS", "mobile"
	case strings.Contains(ua, "ipad"):
		info.OS, info.DeviceType = "iOS", "tablet"
	case strings.Contains(ua, "windows nt"):
		info.OS = "Windows"
	case strings.Contains(ua, "macintosh"), strings.Contains(ua, "mac os x"):
		info.OS = "macOS"
	case strings.Contains(ua, "linux"):
		info.OS = "Linux"
	}

	// Edge and Chrome both advertise "safari"; order matters.
	switch {
	case strings.Contains(ua, "edg"):
		info.Browser = "Edge"
	case strings.Contains(ua, "chrome"), strings.Contains(ua, "crios"):
		info.Browser = "Chrome"
	case strings.Contains(ua, "firefox"), strings.Contains(ua, "fxios"):
		info.Browser = "Firefox"
	case strings.Contains(ua, "safari"):
		info.Browser = "Safari"
	}

	if info.DeviceType == "desktop" {
		switch {
		case strings.Contains(ua, "tablet"):
			info.DeviceType = "tablet"
		case strings.Contains(ua, "mobile"), strings.Contains(ua, "phone"):
			info.DeviceType = "mobile"
		}
	}

	return info
}
