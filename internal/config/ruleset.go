package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	githubapp "github.com/OpsMx/githubapp-client"
)

// LoadRuleset reads a ruleset definition from a YAML file.
func LoadRuleset(path string) (*githubapp.Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, githubapp.WrapClientError(githubapp.ErrCodeConfigurationError, "failed to read ruleset file", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var ruleset githubapp.Ruleset
	if err := dec.Decode(&ruleset); err != nil {
		return nil, githubapp.WrapClientError(githubapp.ErrCodeConfigurationError, fmt.Sprintf("failed to parse %s", path), err)
	}
	if err := githubapp.ValidateRuleset(&ruleset); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &ruleset, nil
}

// DefaultRuleset protects main/master on the important repositories and
// requires commit author emails to contain "github".
func DefaultRuleset() *githubapp.Ruleset {
	return &githubapp.Ruleset{
		Name:        "super cool ruleset",
		Target:      "branch",
		Enforcement: "active",
		Conditions: &githubapp.RulesetConditions{
			RefName: &githubapp.RefNameCondition{
				Include: []string{"refs/heads/main", "refs/heads/master"},
				Exclude: []string{"refs/heads/dev*"},
			},
			RepositoryName: &githubapp.RepositoryNameCondition{
				Include:   []string{"important_repository", "another_important_repository"},
				Exclude:   []string{"unimportant_repository"},
				Protected: true,
			},
		},
		Rules: []githubapp.RulesetRule{
			{
				Type: "commit_author_email_pattern",
				Parameters: map[string]any{
					"operator": "contains",
					"pattern":  "github",
				},
			},
		},
	}
}
