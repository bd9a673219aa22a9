package resources

// DataSource is a named connection descriptor loaded from
// resources/data_sources/<name>.yml.
type DataSource struct {
	Name             string `yaml:"name"`
	Kind             string `yaml:"kind"`
	ConnectionString string `yaml:"connection_string"`
	// Secure enables TLS for kinds that support it (ClickHouse Cloud).
	Secure bool `yaml:"secure,omitempty"`
}

// AssetGroup is one resources/data_assets/<group>.yml file: a set of query
// templates against a single data source. Asset names must be unique within
// the group.
type AssetGroup struct {
	Group      string      `yaml:"-"`
	DataSource string      `yaml:"data_source"`
	Assets     []AssetSpec `yaml:"data_assets"`
}

// AssetSpec is a named SQL query template. The optional suffix is appended to
// the asset name when the asset is materialized, so the same template can be
// registered under run-specific names.
type AssetSpec struct {
	Name   string `yaml:"name"`
	Query  string `yaml:"query"`
	Suffix string `yaml:"suffix,omitempty"`
}

// Expectation is a single data-quality rule: a type tag plus keyword
// arguments interpreted by the expectation registry.
type Expectation struct {
	Type   string         `yaml:"expectation_type"`
	Kwargs map[string]any `yaml:"kwargs"`
}

// Suite is a named set of expectations from resources/suites/<name>.yml.
type Suite struct {
	Name         string        `yaml:"name"`
	Expectations []Expectation `yaml:"expectations"`
}

// jobSpec is the raw YAML shape of resources/jobs/<sub>/<name>.yml before
// asset and suite references are resolved.
type jobSpec struct {
	Name string    `yaml:"name"`
	Tags []string  `yaml:"tags"`
	Runs []runSpec `yaml:"runs"`
}

type runSpec struct {
	DataAssets []string `yaml:"data_assets"`
	Suite      string   `yaml:"suite"`
}

// Asset is a fully-resolved data asset: the rendered name, its query
// template, and the data source it runs against.
type Asset struct {
	Ref        string
	Name       string
	Query      string
	DataSource string
}

// Run binds a set of resolved assets to a resolved suite.
type Run struct {
	Assets []Asset
	Suite  Suite
}

// Job is a fully-resolved job: every asset reference and the suite reference
// of each run has been loaded and inlined.
type Job struct {
	Name string
	Tags []string
	Runs []Run
}

// HasTags reports whether the job carries every one of the given tags.
func (j *Job) HasTags(tags []string) bool {
	for _, want := range tags {
		found := false
		for _, have := range j.Tags {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
