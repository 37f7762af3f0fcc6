package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	githubapp "github.com/OpsMx/githubapp-client"
	"github.com/OpsMx/githubapp-client/internal/config"
)

func (a *app) orgsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orgs",
		Short: "Inspect the configured organization",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show organization details and repository counts by visibility",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Require(config.FieldOrg); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			ctx := cmd.Context()
			token, err := a.installationToken(ctx)
			if err != nil {
				return err
			}
			org, err := a.client.GetOrganization(ctx, token, a.cfg.Org)
			if err != nil {
				return fmt.Errorf("get organization: %w", err)
			}
			repos, err := a.client.ListOrgRepositories(ctx, token, a.cfg.Org)
			if err != nil {
				return fmt.Errorf("list repositories: %w", err)
			}
			report := orgReport{Organization: org, Repositories: githubapp.CountRepositories(repos)}
			return a.print(report, func(p *printer) {
				p.line("Organization: %s", org.Login)
				p.line("Name: %s", orNA(org.Name))
				p.line("Description: %s", orNA(org.Description))
				p.line("Public Repos: %d", report.Repositories.Public)
				p.line("Internal Repos: %d", report.Repositories.Internal)
				p.line("Private Repos: %d", report.Repositories.Private)
				p.line("Total Repos: %d", report.Repositories.Total)
			})
		},
	}

	members := &cobra.Command{
		Use:   "members",
		Short: "List organization members",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Require(config.FieldOrg); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			token, err := a.installationToken(cmd.Context())
			if err != nil {
				return err
			}
			list, err := a.client.ListOrgMembers(cmd.Context(), token, a.cfg.Org)
			if err != nil {
				return fmt.Errorf("list members: %w", err)
			}
			return a.print(list, func(p *printer) {
				for _, m := range list {
					p.line("%s (ID: %d, Type: %s)", m.Login, m.ID, m.Type)
				}
			})
		},
	}

	cmd.AddCommand(show, members)
	return cmd
}

type orgReport struct {
	Organization *githubapp.Organization    `json:"organization"`
	Repositories githubapp.RepositoryCounts `json:"repositories"`
}

func (a *app) enterpriseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enterprise",
		Short: "Work with enterprise installations of the App",
	}

	var slug string
	var install bool
	orgs := &cobra.Command{
		Use:   "orgs",
		Short: "List installable organizations of each enterprise and whether the App is installed",
		Long: "For every enterprise installation of the App, list the organizations it can be installed on.\n" +
			"With --install, the App is installed on every organization that does not have it yet.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.enterpriseOrgs(cmd.Context(), slug, install)
		},
	}
	orgs.Flags().StringVar(&slug, "enterprise", "", "only this enterprise slug")
	orgs.Flags().BoolVar(&install, "install", false, "install the App where it is missing")

	cmd.AddCommand(orgs)
	return cmd
}

type enterpriseOrg struct {
	Enterprise   string `json:"enterprise"`
	Login        string `json:"login,omitempty"`
	Installed    bool   `json:"installed"`
	InstalledNow bool   `json:"installed_now,omitempty"`
	Error        string `json:"error,omitempty"`
}

func (a *app) enterpriseOrgs(ctx context.Context, slug string, install bool) error {
	assertion, err := a.client.Assertion()
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	installations, err := a.client.ListInstallations(ctx, assertion)
	if err != nil {
		return fmt.Errorf("list installations: %w", err)
	}

	var targets []githubapp.Installation
	for _, inst := range installations {
		if !strings.EqualFold(inst.Account.Type, "Enterprise") {
			continue
		}
		if slug != "" && !strings.EqualFold(enterpriseSlug(inst.Account), slug) {
			continue
		}
		targets = append(targets, inst)
	}
	if len(targets) == 0 {
		return fmt.Errorf("list installations: %w", githubapp.NewClientErrorWithDetails(githubapp.ErrCodeNotFound,
			"app has no enterprise installation", slug))
	}

	var clientID string
	if install {
		info, err := a.client.GetApp(ctx, assertion)
		if err != nil {
			return fmt.Errorf("get app: %w", err)
		}
		clientID = info.ClientID
	}

	var rows []enterpriseOrg
	var failed int
	for _, res := range a.client.ExchangeAll(ctx, assertion, targets) {
		a.metrics.TokenExchanged(res.Err)
		ent := enterpriseSlug(res.Installation.Account)
		if res.Err != nil {
			rows = append(rows, enterpriseOrg{Enterprise: ent, Error: res.Err.Error()})
			failed++
			continue
		}
		orgs, err := a.client.ListInstallableOrganizations(ctx, res.Token.Token, ent)
		if err != nil {
			rows = append(rows, enterpriseOrg{Enterprise: ent, Error: err.Error()})
			failed++
			continue
		}
		for _, org := range orgs {
			row := a.enterpriseOrgStatus(ctx, assertion, res.Token.Token, ent, org.Login, install, clientID)
			if row.Error != "" {
				failed++
			}
			rows = append(rows, row)
		}
	}

	if err := a.print(rows, func(p *printer) {
		for _, r := range rows {
			switch {
			case r.Error != "":
				p.line("%s\t%s\terror: %s", r.Enterprise, r.Login, r.Error)
			case r.InstalledNow:
				p.line("%s\t%s\tinstalled now", r.Enterprise, r.Login)
			case r.Installed:
				p.line("%s\t%s\tinstalled", r.Enterprise, r.Login)
			default:
				p.line("%s\t%s\tnot installed", r.Enterprise, r.Login)
			}
		}
	}); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("enterprise orgs: %d of %d entries failed", failed, len(rows))
	}
	return nil
}

// enterpriseOrgStatus reports whether the App is installed on org, installing it when asked
func (a *app) enterpriseOrgStatus(ctx context.Context, assertion *githubapp.Assertion, token, enterprise, org string, install bool, clientID string) enterpriseOrg {
	row := enterpriseOrg{Enterprise: enterprise, Login: org}

	_, err := a.client.GetOrgInstallation(ctx, assertion, org)
	switch {
	case err == nil:
		row.Installed = true
		return row
	case !githubapp.IsNotFound(err):
		row.Error = err.Error()
		return row
	case !install:
		return row
	}

	if _, err := a.client.InstallOnEnterpriseOrg(ctx, token, enterprise, org,
		githubapp.EnterpriseInstallationRequest{ClientID: clientID}); err != nil {
		a.log.Warn("install failed", zap.String("enterprise", enterprise), zap.String("org", org), zap.Error(err))
		row.Error = err.Error()
		return row
	}
	row.Installed, row.InstalledNow = true, true
	return row
}

// enterpriseSlug names the enterprise an installation belongs to
func enterpriseSlug(account githubapp.Account) string {
	if account.Slug != "" {
		return account.Slug
	}
	return account.Login
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
