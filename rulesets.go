package githubapp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ListRulesets lists the rulesets of org
func (c *Client) ListRulesets(ctx context.Context, token, org string) ([]Ruleset, error) {
	if token == "" {
		return nil, NewClientError(ErrCodeAuthenticationError, "access token is required")
	}
	if org == "" {
		return nil, NewClientError(ErrCodeConfigurationError, "organization is required")
	}

	path := "/orgs/" + url.PathEscape(org) + "/rulesets?per_page=100"
	rulesets, err := listPages(ctx, c, path, token, func(page []Ruleset) []Ruleset { return page })
	if err != nil {
		return nil, fmt.Errorf("failed to list rulesets of %s: %w", org, err)
	}
	return rulesets, nil
}

// CreateRuleset creates ruleset in org
func (c *Client) CreateRuleset(ctx context.Context, token, org string, ruleset Ruleset) (*Ruleset, error) {
	if token == "" {
		return nil, NewClientError(ErrCodeAuthenticationError, "access token is required")
	}
	if org == "" {
		return nil, NewClientError(ErrCodeConfigurationError, "organization is required")
	}
	if err := ValidateRuleset(&ruleset); err != nil {
		return nil, err
	}

	// The ID is assigned by GitHub
	ruleset.ID = 0

	var created Ruleset
	if _, err := c.do(ctx, http.MethodPost, "/orgs/"+url.PathEscape(org)+"/rulesets", token, &ruleset, &created); err != nil {
		return nil, fmt.Errorf("failed to create ruleset %q in %s: %w", ruleset.Name, org, err)
	}
	return &created, nil
}

var (
	rulesetTargets      = map[string]bool{"branch": true, "tag": true, "push": true}
	rulesetEnforcements = map[string]bool{"disabled": true, "active": true, "evaluate": true}
)

// ValidateRuleset checks the fields GitHub requires before a ruleset is sent
func ValidateRuleset(ruleset *Ruleset) error {
	if ruleset.Name == "" {
		return NewClientError(ErrCodeValidationError, "ruleset name is required")
	}
	if !rulesetTargets[ruleset.Target] {
		return NewClientErrorWithDetails(ErrCodeValidationError, "invalid ruleset target", ruleset.Target)
	}
	if !rulesetEnforcements[ruleset.Enforcement] {
		return NewClientErrorWithDetails(ErrCodeValidationError, "invalid ruleset enforcement", ruleset.Enforcement)
	}
	for i, rule := range ruleset.Rules {
		if rule.Type == "" {
			return NewClientErrorWithDetails(ErrCodeValidationError, "ruleset rule type is required", fmt.Sprintf("rules[%d]", i))
		}
	}
	return nil
}
