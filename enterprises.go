package githubapp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ListInstallableOrganizations lists the enterprise organizations the App can be installed on
// token must belong to the App's enterprise installation
func (c *Client) ListInstallableOrganizations(ctx context.Context, token, enterprise string) ([]InstallableOrganization, error) {
	if err := requireEnterprise(token, enterprise); err != nil {
		return nil, err
	}

	path := "/enterprises/" + url.PathEscape(enterprise) + "/apps/installable_organizations?per_page=100"
	orgs, err := listPages(ctx, c, path, token, func(page []InstallableOrganization) []InstallableOrganization { return page })
	if err != nil {
		return nil, fmt.Errorf("failed to list installable organizations of %s: %w", enterprise, err)
	}
	return orgs, nil
}

// ListEnterpriseOrgInstallations lists the App installations on an enterprise organization
func (c *Client) ListEnterpriseOrgInstallations(ctx context.Context, token, enterprise, org string) ([]OrganizationInstallation, error) {
	if err := requireEnterprise(token, enterprise); err != nil {
		return nil, err
	}
	if org == "" {
		return nil, NewClientError(ErrCodeConfigurationError, "organization is required")
	}

	path := enterpriseOrgPath(enterprise, org) + "?per_page=100"
	installations, err := listPages(ctx, c, path, token, func(page []OrganizationInstallation) []OrganizationInstallation { return page })
	if err != nil {
		return nil, fmt.Errorf("failed to list installations on %s/%s: %w", enterprise, org, err)
	}
	return installations, nil
}

// InstallOnEnterpriseOrg installs the App identified by request.ClientID on an enterprise organization
// RepositorySelection defaults to "all"
func (c *Client) InstallOnEnterpriseOrg(ctx context.Context, token, enterprise, org string, request EnterpriseInstallationRequest) (*OrganizationInstallation, error) {
	if err := requireEnterprise(token, enterprise); err != nil {
		return nil, err
	}
	if org == "" {
		return nil, NewClientError(ErrCodeConfigurationError, "organization is required")
	}
	if request.ClientID == "" {
		return nil, NewClientError(ErrCodeConfigurationError, "app client ID is required")
	}
	if request.RepositorySelection == "" {
		request.RepositorySelection = "all"
	}

	var installation OrganizationInstallation
	if _, err := c.do(ctx, http.MethodPost, enterpriseOrgPath(enterprise, org), token, &request, &installation); err != nil {
		return nil, fmt.Errorf("failed to install app on %s/%s: %w", enterprise, org, err)
	}
	return &installation, nil
}

func enterpriseOrgPath(enterprise, org string) string {
	return "/enterprises/" + url.PathEscape(enterprise) + "/apps/organizations/" + url.PathEscape(org) + "/installations"
}

func requireEnterprise(token, enterprise string) error {
	if token == "" {
		return NewClientError(ErrCodeAuthenticationError, "access token is required")
	}
	if enterprise == "" {
		return NewClientError(ErrCodeConfigurationError, "enterprise is required")
	}
	return nil
}
