// Package scenario replays recorded status changes into a history and
// checks as-of answers against expectations.
package scenario

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Event struct {
	Entity string    `yaml:"entity"`
	Status string    `yaml:"status"`
	At     time.Time `yaml:"at"`
}

type Check struct {
	Entity string    `yaml:"entity"`
	At     time.Time `yaml:"at"`
	// Want is empty when no status is expected at At.
	Want string `yaml:"want"`
}

type Scenario struct {
	Name   string  `yaml:"name"`
	Events []Event `yaml:"events"`
	Checks []Check `yaml:"checks"`
}

// Load reads a scenario from a YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &sc, nil
}

func (sc *Scenario) Validate() error {
	for i, e := range sc.Events {
		if e.Entity == "" || e.Status == "" || e.At.IsZero() {
			return fmt.Errorf("event %d: entity, status and at are required", i)
		}
	}
	for i, c := range sc.Checks {
		if c.Entity == "" || c.At.IsZero() {
			return fmt.Errorf("check %d: entity and at are required", i)
		}
	}
	return nil
}

// Default is the product lifecycle used when no scenario file is given.
func Default() *Scenario {
	at := func(month time.Month, day, hour, min int) time.Time {
		return time.Date(2025, month, day, hour, min, 0, 0, time.UTC)
	}

	return &Scenario{
		Name: "product lifecycle",
		Events: []Event{
			{Entity: "1", Status: "New", At: at(time.April, 1, 10, 0)},
			{Entity: "1", Status: "Trending", At: at(time.April, 3, 15, 30)},
			{Entity: "1", Status: "Old", At: at(time.April, 8, 9, 15)},
			{Entity: "1", Status: "Trending", At: at(time.May, 1, 0, 0)},
		},
		Checks: []Check{
			{Entity: "1", At: at(time.April, 10, 14, 0), Want: "Old"},
			{Entity: "1", At: at(time.April, 5, 12, 0), Want: "Trending"},
			{Entity: "1", At: at(time.April, 2, 18, 0), Want: "New"},
			{Entity: "1", At: at(time.May, 2, 18, 0), Want: "Trending"},
		},
	}
}
