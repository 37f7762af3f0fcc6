package githubapp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// GetOrganization retrieves org's profile, including its repository counts
func (c *Client) GetOrganization(ctx context.Context, token, org string) (*Organization, error) {
	if err := requireTokenAndOrg(token, org); err != nil {
		return nil, err
	}

	var organization Organization
	if _, err := c.do(ctx, http.MethodGet, "/orgs/"+url.PathEscape(org), token, nil, &organization); err != nil {
		return nil, fmt.Errorf("failed to get organization %s: %w", org, err)
	}
	return &organization, nil
}

// ListOrgMembers lists every member of org visible to the token
func (c *Client) ListOrgMembers(ctx context.Context, token, org string) ([]Account, error) {
	if err := requireTokenAndOrg(token, org); err != nil {
		return nil, err
	}

	path := "/orgs/" + url.PathEscape(org) + "/members?per_page=100"
	members, err := listPages(ctx, c, path, token, func(page []Account) []Account { return page })
	if err != nil {
		return nil, fmt.Errorf("failed to list members of %s: %w", org, err)
	}
	return members, nil
}

// CountRepositories tallies repos by visibility
// Repositories without a visibility fall back to their private flag
func CountRepositories(repos []Repository) RepositoryCounts {
	var counts RepositoryCounts
	for _, repo := range repos {
		counts.Total++
		switch {
		case repo.Visibility == "public":
			counts.Public++
		case repo.Visibility == "internal":
			counts.Internal++
		case repo.Visibility == "private" || repo.Private:
			counts.Private++
		}
	}
	return counts
}

func requireTokenAndOrg(token, org string) error {
	if token == "" {
		return NewClientError(ErrCodeAuthenticationError, "access token is required")
	}
	if org == "" {
		return NewClientError(ErrCodeConfigurationError, "organization is required")
	}
	return nil
}
