package resources

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader reads YAML resource definitions from a project's resources
// directory. All reads happen fresh per call; nothing is cached across
// invocations.
type Loader struct {
	root string
}

// NewLoader creates a loader rooted at a resources directory
// (<project>/resources).
func NewLoader(root string) *Loader {
	return &Loader{root: root}
}

// LoadDataSource reads resources/data_sources/<name>.yml. Environment
// variable references (${VAR}) in the connection string are expanded so
// credentials can stay out of the YAML.
func (l *Loader) LoadDataSource(name string) (*DataSource, error) {
	path := filepath.Join(l.root, "data_sources", name+".yml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data source %q: %w", name, err)
	}

	var ds DataSource
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse data source %q: %w", name, err)
	}
	if ds.Name == "" {
		ds.Name = name
	}
	if ds.Kind == "" {
		return nil, fmt.Errorf("data source %q: kind is required", name)
	}
	if ds.ConnectionString == "" {
		return nil, fmt.Errorf("data source %q: connection_string is required", name)
	}
	ds.ConnectionString = os.ExpandEnv(ds.ConnectionString)
	return &ds, nil
}

// LoadAssetGroup reads resources/data_assets/<group>.yml and enforces the
// unique-name invariant within the file.
func (l *Loader) LoadAssetGroup(group string) (*AssetGroup, error) {
	path := filepath.Join(l.root, "data_assets", group+".yml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset group %q: %w", group, err)
	}

	var ag AssetGroup
	if err := yaml.Unmarshal(data, &ag); err != nil {
		return nil, fmt.Errorf("failed to parse asset group %q: %w", group, err)
	}
	ag.Group = group

	seen := make(map[string]bool, len(ag.Assets))
	for _, a := range ag.Assets {
		if a.Name == "" {
			return nil, fmt.Errorf("asset group %q: asset with empty name", group)
		}
		if a.Query == "" {
			return nil, fmt.Errorf("asset group %q: asset %q has no query", group, a.Name)
		}
		if seen[a.Name] {
			return nil, fmt.Errorf("asset group %q: duplicate asset name %q", group, a.Name)
		}
		seen[a.Name] = true
	}
	return &ag, nil
}

// ResolveAsset resolves a "group.name" reference into a concrete asset.
func (l *Loader) ResolveAsset(ref string) (*Asset, error) {
	group, name, ok := strings.Cut(ref, ".")
	if !ok || group == "" || name == "" {
		return nil, fmt.Errorf("invalid asset reference %q: want group.name", ref)
	}

	ag, err := l.LoadAssetGroup(group)
	if err != nil {
		return nil, err
	}
	for _, spec := range ag.Assets {
		if spec.Name != name {
			continue
		}
		return &Asset{
			Ref:        ref,
			Name:       ref + spec.Suffix,
			Query:      spec.Query,
			DataSource: ag.DataSource,
		}, nil
	}
	return nil, fmt.Errorf("asset %q not found in group %q", ref, group)
}

// LoadSuite reads resources/suites/<name>.yml.
func (l *Loader) LoadSuite(name string) (*Suite, error) {
	path := filepath.Join(l.root, "suites", name+".yml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite %q: %w", name, err)
	}

	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse suite %q: %w", name, err)
	}
	if s.Name == "" {
		s.Name = name
	}
	if len(s.Expectations) == 0 {
		return nil, fmt.Errorf("suite %q has no expectations", name)
	}
	for i, e := range s.Expectations {
		if e.Type == "" {
			return nil, fmt.Errorf("suite %q: expectation %d has no expectation_type", name, i)
		}
	}
	return &s, nil
}

// ListDataSources returns the names of all declared data sources.
func (l *Loader) ListDataSources() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(l.root, "data_sources"))
	if err != nil {
		return nil, fmt.Errorf("failed to list data sources: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yml"))
	}
	return names, nil
}
