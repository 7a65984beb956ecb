package manifest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/mod/modfile"
	"gopkg.in/yaml.v3"
)

type packageJSONParser struct{}

func (packageJSONParser) Key() string { return PackageJSON }

func (packageJSONParser) Parse(content []byte) (Dependencies, error) {
	var pkg struct {
		Dependencies     map[string]string `json:"dependencies"`
		DevDependencies  map[string]string `json:"devDependencies"`
		PeerDependencies map[string]string `json:"peerDependencies"`
	}
	if err := json.Unmarshal(content, &pkg); err != nil {
		return nil, fmt.Errorf("invalid package.json: %w", err)
	}
	deps := make(Dependencies)
	for _, m := range []map[string]string{pkg.PeerDependencies, pkg.DevDependencies, pkg.Dependencies} {
		for name, version := range m {
			deps[name] = version
		}
	}
	return deps, nil
}

type goModParser struct{}

func (goModParser) Key() string { return GoMod }

func (goModParser) Parse(content []byte) (Dependencies, error) {
	f, err := modfile.Parse(GoMod, content, nil)
	if err != nil {
		return nil, err //nolint:wrapcheck // modfile errors already carry file:line
	}
	deps := make(Dependencies, len(f.Require))
	for _, r := range f.Require {
		deps[r.Mod.Path] = r.Mod.Version
	}
	return deps, nil
}

type pyProjectParser struct{}

func (pyProjectParser) Key() string { return PyProject }

func (pyProjectParser) Parse(content []byte) (Dependencies, error) {
	var doc struct {
		Project struct {
			Dependencies         []string            `toml:"dependencies"`
			OptionalDependencies map[string][]string `toml:"optional-dependencies"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Dependencies    map[string]any `toml:"dependencies"`
				DevDependencies map[string]any `toml:"dev-dependencies"`
				Group           map[string]struct {
					Dependencies map[string]any `toml:"dependencies"`
				} `toml:"group"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if _, err := toml.Decode(string(content), &doc); err != nil {
		return nil, fmt.Errorf("invalid pyproject.toml: %w", err)
	}

	deps := make(Dependencies)
	for _, req := range doc.Project.Dependencies {
		name, version := splitRequirement(req)
		deps[name] = version
	}
	for _, group := range doc.Project.OptionalDependencies {
		for _, req := range group {
			name, version := splitRequirement(req)
			deps[name] = version
		}
	}
	addTableDeps(deps, doc.Tool.Poetry.Dependencies)
	addTableDeps(deps, doc.Tool.Poetry.DevDependencies)
	for _, g := range doc.Tool.Poetry.Group {
		addTableDeps(deps, g.Dependencies)
	}
	delete(deps, "python")
	return deps, nil
}

type requirementsParser struct{}

func (requirementsParser) Key() string { return RequirementsTxt }

func (requirementsParser) Parse(content []byte) (Dependencies, error) {
	deps := make(Dependencies)
	sc := bufio.NewScanner(bytes.NewReader(content))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if i := strings.Index(line, "#"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}
		name, version := splitRequirement(line)
		deps[name] = version
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan requirements.txt: %w", err)
	}
	return deps, nil
}

type cargoParser struct{}

func (cargoParser) Key() string { return CargoToml }

func (cargoParser) Parse(content []byte) (Dependencies, error) {
	var doc struct {
		Dependencies    map[string]any `toml:"dependencies"`
		DevDependencies map[string]any `toml:"dev-dependencies"`
	}
	if _, err := toml.Decode(string(content), &doc); err != nil {
		return nil, fmt.Errorf("invalid Cargo.toml: %w", err)
	}
	deps := make(Dependencies)
	addTableDeps(deps, doc.Dependencies)
	addTableDeps(deps, doc.DevDependencies)
	return deps, nil
}

type pubspecParser struct{}

func (pubspecParser) Key() string { return Pubspec }

func (pubspecParser) Parse(content []byte) (Dependencies, error) {
	var doc struct {
		Dependencies    map[string]any `yaml:"dependencies"`
		DevDependencies map[string]any `yaml:"dev_dependencies"`
	}
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("invalid pubspec.yaml: %w", err)
	}
	deps := make(Dependencies)
	addTableDeps(deps, doc.Dependencies)
	addTableDeps(deps, doc.DevDependencies)
	return deps, nil
}

// addTableDeps handles both `name = "1.0"` and `name = { version = "1.0", ... }` shapes.
func addTableDeps(deps Dependencies, table map[string]any) {
	for name, v := range table {
		switch val := v.(type) {
		case string:
			deps[name] = val
		case map[string]any:
			if version, ok := val["version"].(string); ok {
				deps[name] = version
			} else if sdk, ok := val["sdk"].(string); ok {
				deps[name] = "sdk:" + sdk
			} else {
				deps[name] = ""
			}
		default:
			deps[name] = ""
		}
	}
}

// splitRequirement splits a PEP 508 requirement like "fastapi[all]>=0.100" into name and constraint.
func splitRequirement(req string) (string, string) {
	req = strings.TrimSpace(req)
	if i := strings.Index(req, ";"); i >= 0 {
		req = strings.TrimSpace(req[:i])
	}
	cut := strings.IndexAny(req, "<>=!~[ (")
	if cut < 0 {
		return strings.ToLower(req), ""
	}
	name := strings.ToLower(strings.TrimSpace(req[:cut]))
	rest := req[cut:]
	if strings.HasPrefix(rest, "[") {
		if end := strings.Index(rest, "]"); end >= 0 {
			rest = rest[end+1:]
		}
	}
	return name, strings.TrimSpace(strings.Trim(strings.TrimSpace(rest), "()"))
}
