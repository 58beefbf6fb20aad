package domain

import "strings"

// Project is one tenant of the deferred-links API: one app, one API key and
// the hosts its redirect pages are served from.
type Project struct {
	ID     string
	Name   string
	APIKey string
	// Hosts are the redirect-page hosts whose well-known files describe
	// this project. Wildcards like "*.example.com" are allowed.
	Hosts []string

	AndroidPackage string
	// AndroidCertFingerprints are SHA-256 signing certificate fingerprints
	// published in assetlinks.json.
	AndroidCertFingerprints []string

	IOSAppID    string
	IOSBundleID string
	AppleTeamID string
	// AppPaths are the universal-link paths claimed in the association file.
	AppPaths []string
}

// Owns reports whether packageName is one of the project's app identifiers.
func (p *Project) Owns(packageName string) bool {
	if packageName == "" {
		return false
	}
	return packageName == p.AndroidPackage || packageName == p.IOSAppID || packageName == p.IOSBundleID
}

// ServesHost reports whether host (with or without port) belongs to the project.
func (p *Project) ServesHost(host string) bool {
	host = strings.ToLower(stripPort(host))
	for _, pattern := range p.Hosts {
		if MatchHost(host, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// AssetLinksConfigured reports whether an assetlinks.json can be served.
func (p *Project) AssetLinksConfigured() bool {
	return p.AndroidPackage != "" && len(p.AndroidCertFingerprints) > 0
}

// AppleAssociationConfigured reports whether an apple-app-site-association
// file can be served.
func (p *Project) AppleAssociationConfigured() bool {
	return p.IOSBundleID != "" && p.AppleTeamID != ""
}

// AppleAppID is the "<team>.<bundle>" identifier used by the association file.
func (p *Project) AppleAppID() string {
	return p.AppleTeamID + "." + p.IOSBundleID
}

// MatchHost checks if host matches pattern (supports wildcard *.example.com).
func MatchHost(host, pattern string) bool {
	if host == pattern {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(host, pattern[1:])
	}
	return false
}

func stripPort(host string) string {
	if strings.HasPrefix(host, "[") {
		if i := strings.Index(host, "]"); i > 0 {
			return host[1:i]
		}
		return host
	}
	if i := strings.LastIndexByte(host, ':'); i >= 0 && strings.Count(host, ":") == 1 {
		return host[:i]
	}
	return host
}
