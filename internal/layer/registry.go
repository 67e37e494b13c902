package layer

import (
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/kurtosis-tech/stacktrace"
)

// StackInfo is the optional registry metadata for one stack.
type StackInfo struct {
	Description    string   `yaml:"description,omitempty"`
	Extends        string   `yaml:"extends,omitempty"`
	CompatibleWith []string `yaml:"compatibleWith,omitempty"`
}

// Registry maps stack names to their stacks.yml metadata. Stacks absent from
// the registry are fully usable; the registry only adds metadata.
type Registry map[string]StackInfo

// ReadRegistry loads stacks.yml. Returns an empty registry if the file does
// not exist. Extension is single-level: a stack may not extend itself, and
// may not extend a stack that itself extends another.
func ReadRegistry(registryFilepath string) (Registry, error) {
	data, err := os.ReadFile(registryFilepath)
	if err != nil {
		if os.IsNotExist(err) {
			return Registry{}, nil
		}
		return nil, stacktrace.Propagate(err, "failed to read stack registry '%s'", registryFilepath)
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, stacktrace.Propagate(err, "failed to parse stack registry '%s'", registryFilepath)
	}
	if reg == nil {
		reg = Registry{}
	}

	for name, info := range reg {
		if info.Extends == "" {
			continue
		}
		if info.Extends == name {
			return nil, stacktrace.NewError(
				"stack '%s' in %s cannot extend itself", name, registryFilepath)
		}
		if parent, ok := reg[info.Extends]; ok && parent.Extends != "" {
			return nil, stacktrace.NewError(
				"stack '%s' in %s extends '%s', which itself extends '%s'; only one level of extension is supported",
				name, registryFilepath, info.Extends, parent.Extends)
		}
	}

	return reg, nil
}

// CheckCompatibility verifies that every requested stack with a declared
// compatibleWith list accepts all other requested stacks.
func (r Registry) CheckCompatibility(requested []string) error {
	for _, name := range requested {
		info, ok := r[name]
		if !ok || len(info.CompatibleWith) == 0 {
			continue
		}
		allowed := make(map[string]bool, len(info.CompatibleWith))
		for _, compatible := range info.CompatibleWith {
			allowed[compatible] = true
		}
		for _, other := range requested {
			if other == name {
				continue
			}
			if !allowed[other] {
				return stacktrace.NewError(
					"stack '%s' is not compatible with '%s'; it only works with: %s",
					name, other, strings.Join(info.CompatibleWith, ", "))
			}
		}
	}
	return nil
}
