package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/handoff/internal/domain"
	"github.com/MrSnakeDoc/handoff/internal/httpserver/deps"
	"github.com/MrSnakeDoc/handoff/internal/httpserver/respond"
)

const handleAllURLs = "delegate_permission/common.handle_all_urls"

type assetLink struct {
	Relation []string        `json:"relation"`
	Target   assetLinkTarget `json:"target"`
}

type assetLinkTarget struct {
	Namespace    string   `json:"namespace"`
	PackageName  string   `json:"package_name"`
	Fingerprints []string `json:"sha256_cert_fingerprints"`
}

type appleAssociation struct {
	Applinks appleAppLinks `json:"applinks"`
}

type appleAppLinks struct {
	Apps    []string      `json:"apps"`
	Details []appleDetail `json:"details"`
}

type appleDetail struct {
	AppID string   `json:"appID"`
	Paths []string `json:"paths"`
}

type relatedApp struct {
	Platform string `json:"platform"`
	ID       string `json:"id,omitempty"`
	URL      string `json:"url,omitempty"`
}

type webManifest struct {
	Name                      string       `json:"name"`
	RelatedApplications       []relatedApp `json:"related_applications"`
	PreferRelatedApplications bool         `json:"prefer_related_applications"`
}

// AssetLinks serves /.well-known/assetlinks.json for the project owning the
// request host.
func AssetLinks(d deps.Deps) http.HandlerFunc {
	return forHost(d, func(p *domain.Project) (any, bool) {
		if !p.AssetLinksConfigured() {
			return nil, false
		}
		return []assetLink{{
			Relation: []string{handleAllURLs},
			Target: assetLinkTarget{
				Namespace:    "android_app",
				PackageName:  p.AndroidPackage,
				Fingerprints: p.AndroidCertFingerprints,
			},
		}}, true
	})
}

// AppleAssociation serves /.well-known/apple-app-site-association.
func AppleAssociation(d deps.Deps) http.HandlerFunc {
	return forHost(d, func(p *domain.Project) (any, bool) {
		if !p.AppleAssociationConfigured() {
			return nil, false
		}
		paths := p.AppPaths
		if len(paths) == 0 {
			paths = []string{"*"}
		}
		return appleAssociation{Applinks: appleAppLinks{
			Apps:    []string{},
			Details: []appleDetail{{AppID: p.AppleAppID(), Paths: paths}},
		}}, true
	})
}

// Manifest serves the web app manifest whose related_applications make
// navigator.getInstalledRelatedApps report the project's apps.
func Manifest(d deps.Deps) http.HandlerFunc {
	return forHost(d, func(p *domain.Project) (any, bool) {
		cfg := domain.Configuration{AndroidPackage: p.AndroidPackage, IOSAppID: p.IOSAppID}
		m := webManifest{Name: p.Name, RelatedApplications: []relatedApp{}}
		if p.AndroidPackage != "" {
			m.RelatedApplications = append(m.RelatedApplications, relatedApp{
				Platform: "play", ID: p.AndroidPackage, URL: cfg.StoreURL(domain.Android),
			})
		}
		if p.IOSAppID != "" {
			m.RelatedApplications = append(m.RelatedApplications, relatedApp{
				Platform: "itunes", URL: cfg.StoreURL(domain.IOS),
			})
		}
		return m, true
	})
}

func forHost(d deps.Deps, build func(*domain.Project) (any, bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, ok := d.Projects.ForHost(r.Host)
		if !ok {
			respond.Error(w, http.StatusNotFound, respond.CodeNotFound, "no project serves this host")
			return
		}
		body, ok := build(project)
		if !ok {
			respond.Error(w, http.StatusNotFound, respond.CodeNotFound, "not configured for this project")
			return
		}
		respond.JSON(w, http.StatusOK, body)
	}
}
