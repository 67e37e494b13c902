package profile

import (
	"os"
	"sort"

	"github.com/goccy/go-yaml"
	"github.com/kurtosis-tech/stacktrace"
)

// Profile is a named, predefined stack combination.
type Profile struct {
	Description string   `yaml:"description,omitempty"`
	Stacks      []string `yaml:"stacks"`
}

// Profiles maps profile names to their definitions, as parsed from
// profiles.yml.
type Profiles map[string]Profile

// ReadProfiles loads profiles.yml. Returns an empty map if the file does not
// exist. Every profile must name at least one stack.
func ReadProfiles(profilesFilepath string) (Profiles, error) {
	data, err := os.ReadFile(profilesFilepath)
	if err != nil {
		if os.IsNotExist(err) {
			return Profiles{}, nil
		}
		return nil, stacktrace.Propagate(err, "failed to read profiles file '%s'", profilesFilepath)
	}

	var profiles Profiles
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, stacktrace.Propagate(err, "failed to parse profiles file '%s'", profilesFilepath)
	}
	if profiles == nil {
		profiles = Profiles{}
	}

	for name, p := range profiles {
		if len(p.Stacks) == 0 {
			return nil, stacktrace.NewError(
				"profile '%s' in %s must list at least one stack", name, profilesFilepath)
		}
	}
	return profiles, nil
}

// Get returns the named profile, or an error listing the available profiles.
func (p Profiles) Get(name string) (Profile, error) {
	prof, ok := p[name]
	if !ok {
		names := p.Names()
		if len(names) == 0 {
			return Profile{}, stacktrace.NewError("profile '%s' does not exist (no profiles are defined)", name)
		}
		return Profile{}, stacktrace.NewError(
			"profile '%s' does not exist; available profiles: %v", name, names)
	}
	return prof, nil
}

// Names returns the profile names in lexical order.
func (p Profiles) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
