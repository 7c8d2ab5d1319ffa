package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"cpathways/cprules/pkg/model"
	"cpathways/cprules/pkg/rules"
)

// Suite is a collection of scenarios loaded from one file.
type Suite struct {
	Tests []Case `yaml:"tests"`
}

// Case is a single modeling action and its expected verdict.
type Case struct {
	Name    string         `yaml:"name"`
	Action  string         `yaml:"action"`
	Context *model.Context `yaml:"context"`
	Expect  Expectation    `yaml:"expect"`
}

// Expectation is the verdict a case should produce.
type Expectation struct {
	// Verdict is "allow", "deny" or "defer". Empty means defer.
	Verdict string `yaml:"verdict"`

	// ConnectionType qualifies an expected allow.
	ConnectionType string `yaml:"connection_type,omitempty"`
}

// ParsedVerdict converts the expectation into a rules.Verdict.
func (e Expectation) ParsedVerdict() (rules.Verdict, error) {
	return rules.ParseVerdict(e.Verdict, e.ConnectionType)
}

// LoadSuite reads and validates a suite file.
func LoadSuite(path string) (*Suite, error) {
	// #nosec G304 - suite paths are supplied by the operator.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite: %w", err)
	}

	suite, err := ParseSuite(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return suite, nil
}

// ParseSuite decodes and validates a suite document.
func ParseSuite(data []byte) (*Suite, error) {
	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := suite.Validate(); err != nil {
		return nil, err
	}
	return &suite, nil
}

// Validate checks that every case names a known action and a well-formed
// expectation. All problems are reported together.
func (s *Suite) Validate() error {
	if len(s.Tests) == 0 {
		return errors.New("suite has no tests")
	}

	var errs []error
	seen := make(map[string]bool, len(s.Tests))
	for i, c := range s.Tests {
		label := c.Name
		if label == "" {
			label = fmt.Sprintf("tests[%d]", i)
			errs = append(errs, fmt.Errorf("%s: name is required", label))
		} else if seen[c.Name] {
			errs = append(errs, fmt.Errorf("%s: duplicate name", label))
		}
		seen[c.Name] = true

		if _, err := rules.ParseAction(c.Action); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label, err))
		}
		if _, err := c.Expect.ParsedVerdict(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label, err))
		}
	}
	return errors.Join(errs...)
}
