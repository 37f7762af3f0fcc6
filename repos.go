package githubapp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// CreateRepository creates a repository in org using an installation access token
func (c *Client) CreateRepository(ctx context.Context, token, org string, request RepositoryRequest) (*Repository, error) {
	if token == "" {
		return nil, NewClientError(ErrCodeAuthenticationError, "access token is required")
	}
	if org == "" {
		return nil, NewClientError(ErrCodeConfigurationError, "organization is required")
	}
	if request.Name == "" {
		return nil, NewClientError(ErrCodeConfigurationError, "repository name is required")
	}

	var repo Repository
	if _, err := c.do(ctx, http.MethodPost, "/orgs/"+url.PathEscape(org)+"/repos", token, &request, &repo); err != nil {
		return nil, fmt.Errorf("failed to create repository %s/%s: %w", org, request.Name, err)
	}
	return &repo, nil
}

// ListOrgRepositories lists every repository of org visible to the token
func (c *Client) ListOrgRepositories(ctx context.Context, token, org string) ([]Repository, error) {
	if token == "" {
		return nil, NewClientError(ErrCodeAuthenticationError, "access token is required")
	}
	if org == "" {
		return nil, NewClientError(ErrCodeConfigurationError, "organization is required")
	}

	path := "/orgs/" + url.PathEscape(org) + "/repos?per_page=100"
	repos, err := listPages(ctx, c, path, token, func(page []Repository) []Repository { return page })
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories of %s: %w", org, err)
	}
	return repos, nil
}

// ListInstallationRepositories lists the repositories the installation token grants access to
func (c *Client) ListInstallationRepositories(ctx context.Context, token string) ([]Repository, error) {
	if token == "" {
		return nil, NewClientError(ErrCodeAuthenticationError, "access token is required")
	}

	repos, err := listPages(ctx, c, "/installation/repositories?per_page=100", token,
		func(page installationRepositories) []Repository { return page.Repositories })
	if err != nil {
		return nil, fmt.Errorf("failed to list installation repositories: %w", err)
	}
	return repos, nil
}
