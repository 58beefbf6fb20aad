package projects

import (
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/handoff/internal/domain"
)

// Mapper converts projects.yaml entries to domain.Project entities
type Mapper struct{}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{}
}

// MapProjects validates every entry. A single invalid entry fails the whole
// file so a typo never silently drops a tenant.
func (m *Mapper) MapProjects(file File) ([]*domain.Project, error) {
	seen := make(map[string]bool, len(file.Projects))
	projects := make([]*domain.Project, 0, len(file.Projects))

	for i, props := range file.Projects {
		id := strings.TrimSpace(props.ID)
		switch {
		case id == "":
			return nil, fmt.Errorf("project #%d: id is required", i)
		case seen[id]:
			return nil, fmt.Errorf("project %q: duplicate id", id)
		case strings.TrimSpace(props.APIKey) == "":
			return nil, fmt.Errorf("project %q: apiKey is required", id)
		case props.Android.Package == "" && props.IOS.AppID == "":
			return nil, fmt.Errorf("project %q: android.package or ios.appId is required", id)
		}
		seen[id] = true

		name := props.Name
		if name == "" {
			name = id
		}

		projects = append(projects, &domain.Project{
			ID:                      id,
			Name:                    name,
			APIKey:                  props.APIKey,
			Hosts:                   lower(props.Hosts),
			AndroidPackage:          props.Android.Package,
			AndroidCertFingerprints: props.Android.CertFingerprints,
			IOSAppID:                props.IOS.AppID,
			IOSBundleID:             props.IOS.BundleID,
			AppleTeamID:             props.IOS.TeamID,
			AppPaths:                props.IOS.Paths,
		})
	}

	if len(projects) == 0 {
		return nil, fmt.Errorf("no projects found in projects file")
	}

	return projects, nil
}

func lower(hosts []string) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			out = append(out, h)
		}
	}
	return out
}
