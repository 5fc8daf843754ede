// File: internal/browser/script.go
package browser

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Script is a recording script: the page to open and the ordered actions to
// perform against it. Selectors are xpath expressions.
type Script struct {
	URL   string       `yaml:"url"`
	Steps []ScriptStep `yaml:"steps"`
}

// ScriptStep is one action in a recording script.
type ScriptStep struct {
	Method   string `yaml:"method"`
	Selector string `yaml:"selector"`
	// Value carries the text for fill and type steps.
	Value string `yaml:"value,omitempty"`
	// Key carries the key name for press steps.
	Key string `yaml:"key,omitempty"`
}

// LoadScript reads and validates a YAML recording script.
func LoadScript(path string) (*Script, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %q: %w", path, err)
	}
	var script Script
	if err := yaml.Unmarshal(raw, &script); err != nil {
		return nil, fmt.Errorf("failed to parse script %q: %w", path, err)
	}
	if script.URL == "" {
		return nil, fmt.Errorf("script %q has no url", path)
	}
	for i, step := range script.Steps {
		if step.Method == "" {
			return nil, fmt.Errorf("script %q: step %d has no method", path, i+1)
		}
		if step.Selector == "" && step.Method != "press" {
			return nil, fmt.Errorf("script %q: step %d (%s) has no selector", path, i+1, step.Method)
		}
	}
	return &script, nil
}

// Run navigates to the script URL and performs every step in order. The
// first failing step aborts the run; everything performed up to that point
// stays recorded.
func (s *Session) Run(ctx context.Context, script *Script) error {
	if err := s.Navigate(ctx, script.URL); err != nil {
		return err
	}
	for i, step := range script.Steps {
		var err error
		switch step.Method {
		case "click":
			err = s.Click(ctx, step.Selector)
		case "fill":
			err = s.Fill(ctx, step.Selector, step.Value)
		case "press":
			err = s.Press(ctx, step.Selector, step.Key)
		case "type":
			err = s.Type(ctx, step.Selector, step.Value)
		case "scrollIntoView":
			err = s.ScrollIntoView(ctx, step.Selector)
		default:
			err = fmt.Errorf("unknown step method %q", step.Method)
		}
		if err != nil {
			return fmt.Errorf("step %d failed: %w", i+1, err)
		}
	}
	return nil
}
