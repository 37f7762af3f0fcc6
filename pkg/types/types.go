// Package types defines shared types used across the GitHub App client
package types

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AppClaims represents the JWT payload for GitHub App authentication
// Field order is significant: it fixes the encoded claim order (iat, exp, iss)
type AppClaims struct {
	IssuedAt  int64  `json:"iat"` // Issued at timestamp
	ExpiresAt int64  `json:"exp"` // Expiration timestamp
	Issuer    string `json:"iss"` // GitHub App ID
}

// GetExpirationTime implements jwt.Claims interface
func (p *AppClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	if p.ExpiresAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(p.ExpiresAt, 0)), nil
}

// GetIssuedAt implements jwt.Claims interface
func (p *AppClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	if p.IssuedAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(p.IssuedAt, 0)), nil
}

// GetNotBefore implements jwt.Claims interface
func (p *AppClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims interface
func (p *AppClaims) GetIssuer() (string, error) {
	return p.Issuer, nil
}

// GetSubject implements jwt.Claims interface
func (p *AppClaims) GetSubject() (string, error) {
	return "", nil
}

// GetAudience implements jwt.Claims interface
func (p *AppClaims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}

// Assertion is a signed, time-bounded application identity token
type Assertion struct {
	Token     string    // Encoded JWT
	IssuedAt  time.Time // iat claim
	ExpiresAt time.Time // exp claim
	Issuer    string    // iss claim (application ID)
}

// String returns the encoded token
func (a *Assertion) String() string {
	return a.Token
}

// Expired reports whether the assertion is no longer usable at now
func (a *Assertion) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}

// Account is the user, organization or enterprise an installation belongs to
type Account struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Slug  string `json:"slug,omitempty"` // Set for enterprise accounts
	Type  string `json:"type,omitempty"`
}

// Installation represents a GitHub App installation
type Installation struct {
	ID                  int64             `json:"id"`
	AppID               int64             `json:"app_id"`
	Account             Account           `json:"account"`
	TargetType          string            `json:"target_type,omitempty"`
	RepositorySelection string            `json:"repository_selection,omitempty"`
	Permissions         map[string]string `json:"permissions,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// AccessToken is an installation-scoped bearer credential
type AccessToken struct {
	Token               string            `json:"token"`
	ExpiresAt           time.Time         `json:"expires_at"`
	Permissions         map[string]string `json:"permissions,omitempty"`
	RepositorySelection string            `json:"repository_selection,omitempty"`
}

// TokenRequest narrows the scope of an installation access token
// Both fields are optional - an empty request yields a token with all installation permissions
type TokenRequest struct {
	Repositories []string          `json:"repositories,omitempty"`
	Permissions  map[string]string `json:"permissions,omitempty"`
}

// App describes the authenticated GitHub App
type App struct {
	ID          int64             `json:"id"`
	Slug        string            `json:"slug"`
	ClientID    string            `json:"client_id,omitempty"`
	Name        string            `json:"name"`
	Owner       Account           `json:"owner"`
	HTMLURL     string            `json:"html_url"`
	Permissions map[string]string `json:"permissions,omitempty"`
	Events      []string          `json:"events,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Repository is the subset of the GitHub repository representation used here
type Repository struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Private       bool   `json:"private"`
	Visibility    string `json:"visibility"`
	HTMLURL       string `json:"html_url"`
	DefaultBranch string `json:"default_branch,omitempty"`
}

// RepositoryRequest is the body of a repository creation request
type RepositoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Private     *bool  `json:"private,omitempty"`
	Visibility  string `json:"visibility,omitempty"` // public, private or internal
}

// InstallationRepositories is the envelope returned by GET /installation/repositories
type InstallationRepositories struct {
	TotalCount   int          `json:"total_count"`
	Repositories []Repository `json:"repositories"`
}

// RepositoryCounts tallies an organization's repositories by visibility
type RepositoryCounts struct {
	Public   int `json:"public"`
	Internal int `json:"internal"`
	Private  int `json:"private"`
	Total    int `json:"total"`
}

// Organization is the subset of GET /orgs/{org} used here
type Organization struct {
	ID                int64  `json:"id"`
	Login             string `json:"login"`
	Name              string `json:"name,omitempty"`
	Description       string `json:"description,omitempty"`
	PublicRepos       int    `json:"public_repos"`
	TotalPrivateRepos int    `json:"total_private_repos"`
	OwnedPrivateRepos int    `json:"owned_private_repos"`
}

// InstallableOrganization is an enterprise organization the App may be installed on
type InstallableOrganization struct {
	ID                        int64  `json:"id"`
	Login                     string `json:"login"`
	AccessibleRepositoriesURL string `json:"accessible_repositories_url,omitempty"`
}

// OrganizationInstallation is an App installation as listed by the enterprise API
type OrganizationInstallation struct {
	ID                  int64             `json:"id"`
	AppSlug             string            `json:"app_slug"`
	ClientID            string            `json:"client_id"`
	RepositorySelection string            `json:"repository_selection,omitempty"`
	Permissions         map[string]string `json:"permissions,omitempty"`
}

// EnterpriseInstallationRequest installs an App on an enterprise organization
type EnterpriseInstallationRequest struct {
	ClientID            string   `json:"client_id"`
	RepositorySelection string   `json:"repository_selection"` // all or selected
	Repositories        []string `json:"repositories,omitempty"`
}

// Ruleset is an organization ruleset, as sent to and returned by /orgs/{org}/rulesets
type Ruleset struct {
	ID          int64              `json:"id,omitempty" yaml:"-"`
	Name        string             `json:"name" yaml:"name"`
	Target      string             `json:"target" yaml:"target"`           // branch, tag or push
	Enforcement string             `json:"enforcement" yaml:"enforcement"` // disabled, active or evaluate
	Conditions  *RulesetConditions `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Rules       []RulesetRule      `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// RulesetConditions selects the refs and repositories a ruleset applies to
type RulesetConditions struct {
	RefName        *RefNameCondition        `json:"ref_name,omitempty" yaml:"ref_name,omitempty"`
	RepositoryName *RepositoryNameCondition `json:"repository_name,omitempty" yaml:"repository_name,omitempty"`
}

// RefNameCondition matches ref names by include/exclude patterns
type RefNameCondition struct {
	Include []string `json:"include" yaml:"include"`
	Exclude []string `json:"exclude" yaml:"exclude"`
}

// RepositoryNameCondition matches repository names by include/exclude patterns
type RepositoryNameCondition struct {
	Include   []string `json:"include" yaml:"include"`
	Exclude   []string `json:"exclude" yaml:"exclude"`
	Protected bool     `json:"protected,omitempty" yaml:"protected,omitempty"`
}

// RulesetRule is a single typed rule with free-form parameters
type RulesetRule struct {
	Type       string         `json:"type" yaml:"type"`
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// ErrorResponse represents a GitHub REST API error body
type ErrorResponse struct {
	Message          string            `json:"message"`
	DocumentationURL string            `json:"documentation_url,omitempty"`
	Errors           []ValidationError `json:"errors,omitempty"`
}

// ValidationError describes a field-level failure, present on 422 responses
type ValidationError struct {
	Resource string `json:"resource"`
	Code     string `json:"code"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}
