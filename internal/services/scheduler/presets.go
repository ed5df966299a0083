// -----------------------------------------------------------------------
// Schedule Presets - recurring analyses declared in a YAML file
// -----------------------------------------------------------------------

package scheduler

import (
	"fmt"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// SchedulePreset describes one recurring analysis target
type SchedulePreset struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	Schedule    string `yaml:"schedule"`
	MaxDepth    int    `yaml:"max_depth"`
	Description string `yaml:"description"`
}

type presetsFile struct {
	Schedules []SchedulePreset `yaml:"schedules"`
}

// LoadPresets reads schedule presets from a YAML file. A missing file
// is not an error; it just means no recurring analyses are configured.
func LoadPresets(path string) ([]SchedulePreset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read presets file: %w", err)
	}

	var file presetsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse presets file: %w", err)
	}

	seen := make(map[string]bool)
	for i := range file.Schedules {
		preset := &file.Schedules[i]
		preset.Name = strings.TrimSpace(preset.Name)
		preset.URL = strings.TrimSpace(preset.URL)
		preset.Schedule = strings.TrimSpace(preset.Schedule)

		if preset.Name == "" {
			return nil, fmt.Errorf("schedule %d: name is required", i+1)
		}
		if seen[preset.Name] {
			return nil, fmt.Errorf("schedule %q: duplicate name", preset.Name)
		}
		seen[preset.Name] = true

		if preset.URL == "" {
			return nil, fmt.Errorf("schedule %q: url is required", preset.Name)
		}
		if preset.Schedule == "" {
			return nil, fmt.Errorf("schedule %q: schedule is required", preset.Name)
		}
		if _, err := cron.ParseStandard(preset.Schedule); err != nil {
			return nil, fmt.Errorf("schedule %q: invalid schedule %q: %w", preset.Name, preset.Schedule, err)
		}
		if preset.MaxDepth < 0 {
			return nil, fmt.Errorf("schedule %q: max_depth must not be negative", preset.Name)
		}
	}

	return file.Schedules, nil
}
