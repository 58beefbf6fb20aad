package projects

// File represents the top-level structure of projects.yaml
type File struct {
	Projects []ProjectProps `yaml:"projects"`
}

// ProjectProps contains the properties of one project entry
type ProjectProps struct {
	ID     string   `yaml:"id"`
	Name   string   `yaml:"name,omitempty"`
	APIKey string   `yaml:"apiKey"`
	Hosts  []string `yaml:"hosts,omitempty"`

	Android struct {
		Package          string   `yaml:"package"`
		CertFingerprints []string `yaml:"sha256CertFingerprints,omitempty"`
	} `yaml:"android,omitempty"`

	IOS struct {
		AppID    string   `yaml:"appId"`
		BundleID string   `yaml:"bundleId,omitempty"`
		TeamID   string   `yaml:"teamId,omitempty"`
		Paths    []string `yaml:"paths,omitempty"`
	} `yaml:"ios,omitempty"`
}
