package layer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/kurtosis-tech/stacktrace"
)

// MissingDependency records a dependency entry that named a stack that does
// not exist. The entry is skipped; composition proceeds without it.
type MissingDependency struct {
	DependentName string // stack whose dependency list named the missing stack
	MissingName   string
}

// Resolution is the ordered, deduplicated layer sequence for one request.
type Resolution struct {
	Layers      []Layer
	MissingDeps []MissingDependency
	BaseMissing bool // base directory absent; it contributed nothing
}

// LayerNames returns the names of the resolved layers, in order.
func (r *Resolution) LayerNames() []string {
	names := make([]string, 0, len(r.Layers))
	for _, l := range r.Layers {
		names = append(names, l.Name)
	}
	return names
}

// Resolver resolves stack requests against a base directory, a stacks root,
// and optional registry metadata.
type Resolver struct {
	BaseDirpath   string
	StacksDirpath string
	Registry      Registry
}

// Resolve produces the layer sequence for the requested stacks: the base
// layer first, then each requested stack preceded depth-first (in declared
// order) by its dependencies. A stack registered with `extends` is resolved
// as if the extended stack were the first entry of its dependency list. The
// final sequence is deduplicated by layer directory, keeping each first
// occurrence's position.
//
// A requested stack that does not exist is a fatal error; nothing gets
// composed. A dependency naming a nonexistent stack is recorded on the
// Resolution and skipped. A dependency cycle is a fatal error naming the
// cycle.
func (r Resolver) Resolve(requested []string) (*Resolution, error) {
	if err := r.Registry.CheckCompatibility(requested); err != nil {
		return nil, err
	}

	resolution := &Resolution{}

	baseLayer := Layer{Name: BaseLayerName, Dirpath: r.BaseDirpath}
	baseExists, err := baseLayer.Exists()
	if err != nil {
		return nil, err
	}
	if baseExists {
		resolution.Layers = append(resolution.Layers, baseLayer)
	} else {
		resolution.BaseMissing = true
	}

	var resolving []string
	for _, name := range requested {
		exists, err := r.stackExists(name)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, stacktrace.NewError(
				"stack '%s' does not exist in '%s'", name, r.StacksDirpath)
		}
		if err := r.resolveStack(name, &resolving, resolution); err != nil {
			return nil, err
		}
	}

	resolution.Layers = dedupeLayers(resolution.Layers)
	return resolution, nil
}

// resolveStack appends the stack's dependency closure followed by the stack
// itself. The resolving slice is the in-progress chain used for cycle
// detection; re-entering a stack already on the chain is a cycle.
func (r Resolver) resolveStack(name string, resolving *[]string, resolution *Resolution) error {
	for _, inProgress := range *resolving {
		if inProgress == name {
			chain := append(append([]string{}, *resolving...), name)
			return stacktrace.NewError(
				"dependency cycle detected: %s", strings.Join(chain, " -> "))
		}
	}
	*resolving = append(*resolving, name)
	defer func() { *resolving = (*resolving)[:len(*resolving)-1] }()

	stackLayer := Layer{Name: name, Dirpath: filepath.Join(r.StacksDirpath, name)}

	deps, err := r.declaredDependencies(stackLayer)
	if err != nil {
		return err
	}
	for _, dep := range deps {
		exists, err := r.stackExists(dep)
		if err != nil {
			return err
		}
		if !exists {
			resolution.MissingDeps = append(resolution.MissingDeps, MissingDependency{
				DependentName: name,
				MissingName:   dep,
			})
			continue
		}
		if err := r.resolveStack(dep, resolving, resolution); err != nil {
			return err
		}
	}

	resolution.Layers = append(resolution.Layers, stackLayer)
	return nil
}

// declaredDependencies returns the stack's dependency names: the registry
// `extends` target first (when present), then the depends.txt entries.
func (r Resolver) declaredDependencies(l Layer) ([]string, error) {
	declared, _, err := l.Dependencies()
	if err != nil {
		return nil, err
	}
	if info, ok := r.Registry[l.Name]; ok && info.Extends != "" {
		declared = append([]string{info.Extends}, declared...)
	}
	return declared, nil
}

func (r Resolver) stackExists(name string) (bool, error) {
	if name != filepath.Base(name) || name == "." || name == ".." {
		return false, stacktrace.NewError("invalid stack name '%s'", name)
	}
	info, err := os.Stat(filepath.Join(r.StacksDirpath, name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, stacktrace.Propagate(err, "failed to stat stack '%s'", name)
	}
	return info.IsDir(), nil
}

func dedupeLayers(layers []Layer) []Layer {
	seen := make(map[string]bool, len(layers))
	result := make([]Layer, 0, len(layers))
	for _, l := range layers {
		key := filepath.Clean(l.Dirpath)
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, l)
	}
	return result
}

// ListStacks returns the names of all stacks under the stacks root, in
// lexical order. A missing stacks root yields no stacks.
func ListStacks(stacksDirpath string) ([]string, error) {
	entries, err := os.ReadDir(stacksDirpath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, stacktrace.Propagate(err, "failed to read stacks directory '%s'", stacksDirpath)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
