// Package config defines the JSON pipeline configuration and its
// validation. The file says what one job looks like: where the records
// come from, which fields count as crew, how normalization treats year and
// seasons, and how the process serves and reports.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"

	"seriesstats/internal/normalize"
	"seriesstats/internal/source"
)

// Pipeline is the root configuration object.
type Pipeline struct {
	// Job is the logical job name used in metric tags and snapshots.
	Job string `json:"job"`

	// Source selects and parameterizes the record source backend.
	Source source.Config `json:"source"`

	// Fields configures the crew field selection.
	Fields Fields `json:"fields"`

	// Normalize configures per-record defaulting and crew counting.
	Normalize Normalize `json:"normalize"`

	// Server configures the HTTP front end.
	Server Server `json:"server"`

	// Metrics configures the metrics backend.
	Metrics Metrics `json:"metrics"`
}

// Fields locates the crew field list.
type Fields struct {
	// Path of the field list file (one name per line).
	Path string `json:"path,omitempty"`

	// Encoding of the file when not UTF-8 (any name htmlindex knows).
	Encoding string `json:"encoding,omitempty"`

	// Inline supplies names directly instead of a file.
	Inline []string `json:"inline,omitempty"`

	// AllowEmpty opts in to running without any crew fields: year and
	// season aggregates still work, crew counts are all zero. Without
	// this flag a missing/empty field list fails the whole load.
	AllowEmpty bool `json:"allow_empty,omitempty"`
}

// Normalize mirrors normalize.Options in config form.
type Normalize struct {
	YearField     string `json:"year_field,omitempty"`
	SeasonsField  string `json:"seasons_field,omitempty"`
	MinYear       int    `json:"min_year,omitempty"`
	MaxYear       int    `json:"max_year,omitempty"`
	MaxSeasons    int    `json:"max_seasons,omitempty"`
	CrewCountMode string `json:"crew_count_mode,omitempty"` // "fields" | "entries"
}

// Options converts to the normalize package's options type.
func (n Normalize) Options() normalize.Options {
	return normalize.Options{
		YearField:    n.YearField,
		SeasonsField: n.SeasonsField,
		MinYear:      n.MinYear,
		MaxYear:      n.MaxYear,
		MaxSeasons:   n.MaxSeasons,
		CrewMode:     normalize.CrewMode(n.CrewCountMode),
	}
}

// Server configures the HTTP front end.
type Server struct {
	// Addr is the listen address, e.g. ":8080". Empty disables serving.
	Addr string `json:"addr,omitempty"`
}

// Metrics configures the metrics backend.
type Metrics struct {
	// Backend: "none" (default), "pushgateway", or "datadog".
	Backend string `json:"backend,omitempty"`

	// PushgatewayURL is the Pushgateway base URL for the pushgateway
	// backend.
	PushgatewayURL string `json:"pushgateway_url,omitempty"`

	// FlushSeconds overrides the datadog backend's flush interval.
	FlushSeconds int `json:"flush_seconds,omitempty"`

	// Tags are extra backend tags (e.g. "env:prod").
	Tags []string `json:"tags,omitempty"`
}

// Load reads and decodes the pipeline config at path. Unknown fields are
// rejected so typos fail loudly instead of silently configuring nothing.
func Load(path string) (Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	var p Pipeline
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Pipeline{}, fmt.Errorf("config: decode %s: %w", path, err)
	}

	// DSNs routinely carry credentials via the environment.
	p.Source.DSN = os.ExpandEnv(p.Source.DSN)
	return p, nil
}

// Env carries environment overrides applied on top of the file. Variables
// are prefixed SERIESSTATS_ (SERIESSTATS_ADDR, SERIESSTATS_METRICS_BACKEND,
// SERIESSTATS_PUSHGATEWAY_URL).
type Env struct {
	Addr           string `envconfig:"ADDR"`
	MetricsBackend string `envconfig:"METRICS_BACKEND"`
	PushgatewayURL string `envconfig:"PUSHGATEWAY_URL"`
}

// EnvOverrides reads the override variables.
func EnvOverrides() (Env, error) {
	var e Env
	if err := envconfig.Process("seriesstats", &e); err != nil {
		return Env{}, fmt.Errorf("config: env overrides: %w", err)
	}
	return e, nil
}

// ApplyEnv overlays non-empty override values onto p.
func (p *Pipeline) ApplyEnv(e Env) {
	if e.Addr != "" {
		p.Server.Addr = e.Addr
	}
	if e.MetricsBackend != "" {
		p.Metrics.Backend = e.MetricsBackend
	}
	if e.PushgatewayURL != "" {
		p.Metrics.PushgatewayURL = e.PushgatewayURL
	}
}
