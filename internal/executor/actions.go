package executor

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/v0xg/pagewait/internal/driver"
)

// Action types understood by Run
const (
	ActionNavigate     = "navigate"
	ActionClick        = "click"
	ActionFill         = "fill"
	ActionWaitReady    = "waitReady"
	ActionOpenModal    = "openModal"
	ActionWaitModal    = "waitModal"
	ActionDismissModal = "dismissModal"
	ActionWaitFor      = "waitFor"
	ActionWait         = "wait"
)

// Action represents a single step of a scenario
type Action struct {
	Type     string              `yaml:"action" json:"action"`
	Selector string              `yaml:"selector,omitempty" json:"selector,omitempty"` // CSS selector for click, fill and waitFor
	Text     string              `yaml:"text,omitempty" json:"text,omitempty"`         // Text to fill
	URL      string              `yaml:"url,omitempty" json:"url,omitempty"`           // URL for navigate, relative to the scenario base
	Modal    string              `yaml:"modal,omitempty" json:"modal,omitempty"`       // Modal id for openModal
	State    driver.ElementState `yaml:"state,omitempty" json:"state,omitempty"`       // Target state for waitFor
	Duration int                 `yaml:"wait,omitempty" json:"wait,omitempty"`         // Sleep in ms for wait
	Ready    bool                `yaml:"ready,omitempty" json:"ready,omitempty"`       // Run the readiness gate after a click
}

// String renders the action for progress output
func (a Action) String() string {
	switch a.Type {
	case ActionNavigate:
		return a.Type + " " + a.URL
	case ActionOpenModal:
		return a.Type + " " + a.Modal
	case ActionWait:
		return fmt.Sprintf("%s %dms", a.Type, a.Duration)
	case ActionClick, ActionFill, ActionWaitFor:
		return a.Type + " " + a.Selector
	default:
		return a.Type
	}
}

// Validate checks that the action carries the fields its type needs
func (a Action) Validate() error {
	switch a.Type {
	case ActionNavigate:
		if a.URL == "" {
			return fmt.Errorf("%s: url is required", a.Type)
		}
	case ActionClick, ActionFill, ActionWaitFor:
		if a.Selector == "" {
			return fmt.Errorf("%s: selector is required", a.Type)
		}
	case ActionOpenModal:
		if a.Modal == "" {
			return fmt.Errorf("%s: modal is required", a.Type)
		}
	case ActionWait:
		if a.Duration < 0 {
			return fmt.Errorf("%s: negative duration", a.Type)
		}
	case ActionWaitReady, ActionWaitModal, ActionDismissModal:
	default:
		return fmt.Errorf("unknown action type: %q", a.Type)
	}
	if a.Type == ActionWaitFor && a.State != "" {
		switch a.State {
		case driver.StateAttached, driver.StateDetached, driver.StateVisible, driver.StateHidden:
		default:
			return fmt.Errorf("%s: unknown state %q", a.Type, a.State)
		}
	}
	return nil
}

func (a Action) wait() time.Duration {
	return time.Duration(a.Duration) * time.Millisecond
}

// Scenario is a named list of steps against one site
type Scenario struct {
	Name    string   `yaml:"name" json:"name"`
	BaseURL string   `yaml:"baseURL,omitempty" json:"baseURL,omitempty"`
	Steps   []Action `yaml:"steps" json:"steps"`
}

// Validate checks the base URL and every step
func (s *Scenario) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", s.Name)
	}
	if s.BaseURL != "" {
		if _, err := url.Parse(s.BaseURL); err != nil {
			return fmt.Errorf("invalid baseURL: %w", err)
		}
	}
	for i, step := range s.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

// Resolve returns ref made absolute against the scenario base URL
func (s *Scenario) Resolve(ref string) (string, error) {
	if s.BaseURL == "" {
		return ref, nil
	}
	base, err := url.Parse(s.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid baseURL: %w", err)
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", ref, err)
	}
	return base.ResolveReference(u).String(), nil
}

// ParseScenario decodes a YAML (or JSON) scenario and validates it
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadScenario reads and parses a scenario file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}
