package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// JobOverrides maps a job name to its overridden settings.
type JobOverrides map[string]JobOverride

// JobOverride replaces parts of a job's default registration. Schedule and
// Every are mutually exclusive.
type JobOverride struct {
	Enabled  *bool         `yaml:"enabled"`
	Schedule string        `yaml:"schedule"` // RRULE
	Every    time.Duration `yaml:"every"`
}

type jobsFile struct {
	Jobs JobOverrides `yaml:"jobs"`
}

// LoadJobOverrides reads a jobs YAML file.
func LoadJobOverrides(path string) (JobOverrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading jobs file: %w", err)
	}
	var f jobsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing jobs file: %w", err)
	}
	for name, o := range f.Jobs {
		if o.Schedule != "" && o.Every != 0 {
			return nil, fmt.Errorf("job %s: schedule and every are mutually exclusive", name)
		}
		if o.Every < 0 {
			return nil, fmt.Errorf("job %s: negative interval %s", name, o.Every)
		}
	}
	return f.Jobs, nil
}
