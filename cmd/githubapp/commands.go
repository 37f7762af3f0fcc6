package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	githubapp "github.com/OpsMx/githubapp-client"
	"github.com/OpsMx/githubapp-client/internal/config"
)

func (a *app) appCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "app",
		Short: "Show the authenticated GitHub App",
		RunE: func(cmd *cobra.Command, args []string) error {
			assertion, err := a.client.Assertion()
			if err != nil {
				return fmt.Errorf("sign: %w", err)
			}
			info, err := a.client.GetApp(cmd.Context(), assertion)
			if err != nil {
				return fmt.Errorf("get app: %w", err)
			}
			return a.print(info, func(p *printer) {
				p.line("App: %s (%s)", info.Name, info.Slug)
				p.line("ID: %d", info.ID)
				p.line("Owner: %s", info.Owner.Login)
			})
		},
	}
}

func (a *app) installationsCommand() *cobra.Command {
	var withRepos bool
	var installationID int64
	cmd := &cobra.Command{
		Use:   "installations",
		Short: "List installations, optionally with the repositories each can access",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			assertion, err := a.client.Assertion()
			if err != nil {
				return fmt.Errorf("sign: %w", err)
			}
			if installationID > 0 {
				return a.showInstallation(ctx, assertion, installationID)
			}
			installations, err := a.client.ListInstallations(ctx, assertion)
			if err != nil {
				return fmt.Errorf("list installations: %w", err)
			}
			if !withRepos {
				return a.print(installations, func(p *printer) {
					for _, inst := range installations {
						p.line("Installation ID: %d", inst.ID)
						p.line("Account: %s", inst.Account.Login)
					}
				})
			}

			listings := a.installationRepositories(ctx, assertion, installations)
			printErr := a.print(listings, func(p *printer) {
				for _, l := range listings {
					p.line("Installation ID: %d", l.InstallationID)
					p.line("Account: %s", l.Account)
					if l.Error != "" {
						p.line("  error: %s", l.Error)
						continue
					}
					for _, repo := range l.Repositories {
						p.line("  Repository: %s (%s)", repo.FullName, repo.Visibility)
					}
				}
			})
			if printErr != nil {
				return printErr
			}
			for _, l := range listings {
				if l.Error != "" {
					return fmt.Errorf("list repositories: %d of %d installations failed", countFailed(listings), len(listings))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withRepos, "repos", false, "also list repositories for each installation")
	cmd.Flags().Int64Var(&installationID, "id", 0, "show a single installation with its permissions")
	return cmd
}

func (a *app) showInstallation(ctx context.Context, assertion *githubapp.Assertion, id int64) error {
	inst, err := a.client.GetInstallation(ctx, assertion, id)
	if err != nil {
		return fmt.Errorf("get installation: %w", err)
	}
	return a.print(inst, func(p *printer) {
		p.line("Installation ID: %d", inst.ID)
		p.line("Account: %s (%s)", inst.Account.Login, inst.Account.Type)
		p.line("Repository Selection: %s", inst.RepositorySelection)
		for _, name := range sortedKeys(inst.Permissions) {
			p.line("  %s: %s", name, inst.Permissions[name])
		}
	})
}

type repositoryListing struct {
	InstallationID int64                  `json:"installation_id"`
	Account        string                 `json:"account"`
	Repositories   []githubapp.Repository `json:"repositories,omitempty"`
	Error          string                 `json:"error,omitempty"`
}

// installationRepositories exchanges a token per installation and lists what
// it can see. Failures are recorded per installation.
func (a *app) installationRepositories(ctx context.Context, assertion *githubapp.Assertion, installations []githubapp.Installation) []repositoryListing {
	results := a.client.ExchangeAll(ctx, assertion, installations, a.permissions...)
	listings := make([]repositoryListing, len(results))
	for i, res := range results {
		a.metrics.TokenExchanged(res.Err)
		listings[i] = repositoryListing{InstallationID: res.Installation.ID, Account: res.Installation.Account.Login}
		if res.Err != nil {
			listings[i].Error = res.Err.Error()
			a.log.Warn("token exchange failed", zap.Int64("installation_id", res.Installation.ID), zap.Error(res.Err))
			continue
		}
		repos, err := a.client.ListInstallationRepositories(ctx, res.Token.Token)
		if err != nil {
			listings[i].Error = err.Error()
			continue
		}
		listings[i].Repositories = repos
	}
	return listings
}

func countFailed(listings []repositoryListing) int {
	n := 0
	for _, l := range listings {
		if l.Error != "" {
			n++
		}
	}
	return n
}

func (a *app) tokenCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Create an installation access token",
		Long: "Create an installation access token for the configured installation, or for the\n" +
			"installation on --org when no ID is configured. With --all, one token per installation.\n" +
			"When GITHUB_OUTPUT is set the token is also written there as the step output \"token\".",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			assertion, err := a.client.Assertion()
			if err != nil {
				return fmt.Errorf("sign: %w", err)
			}

			if all {
				return a.allTokens(ctx, assertion)
			}

			installationID, err := a.resolveInstallation(ctx, assertion)
			if err != nil {
				return err
			}
			token, err := a.client.ExchangeToken(ctx, assertion, installationID, a.permissions...)
			a.metrics.TokenExchanged(err)
			if err != nil {
				return fmt.Errorf("exchange token: %w", err)
			}
			if err := writeActionsOutput(a.stdout, "token", token.Token); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			return a.print(token, func(p *printer) {
				p.line("%s", token.Token)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "create a token for every installation")
	cmd.Flags().StringSliceVar(&a.permissions, "permission", nil, "restrict the token, e.g. contents:read (repeatable)")
	return cmd
}

type tokenResult struct {
	InstallationID int64                  `json:"installation_id"`
	Account        string                 `json:"account"`
	Token          *githubapp.AccessToken `json:"token,omitempty"`
	Error          string                 `json:"error,omitempty"`
}

func (a *app) allTokens(ctx context.Context, assertion *githubapp.Assertion) error {
	installations, err := a.client.ListInstallations(ctx, assertion)
	if err != nil {
		return fmt.Errorf("list installations: %w", err)
	}

	var failed int
	results := a.client.ExchangeAll(ctx, assertion, installations, a.permissions...)
	out := make([]tokenResult, len(results))
	for i, res := range results {
		a.metrics.TokenExchanged(res.Err)
		out[i] = tokenResult{InstallationID: res.Installation.ID, Account: res.Installation.Account.Login, Token: res.Token}
		if res.Err != nil {
			out[i].Error = res.Err.Error()
			failed++
		}
	}

	if err := a.print(out, func(p *printer) {
		for _, r := range out {
			if r.Error != "" {
				p.line("%d\t%s\terror: %s", r.InstallationID, r.Account, r.Error)
				continue
			}
			p.line("%d\t%s\t%s", r.InstallationID, r.Account, r.Token.Token)
		}
	}); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("exchange token: %d of %d installations failed", failed, len(results))
	}
	return nil
}

// resolveInstallation returns the configured installation ID, or discovers the
// installation whose account matches the configured organization.
func (a *app) resolveInstallation(ctx context.Context, assertion *githubapp.Assertion) (int64, error) {
	if a.cfg.InstallationID > 0 {
		return a.cfg.InstallationID, nil
	}

	installations, err := a.client.ListInstallations(ctx, assertion)
	if err != nil {
		return 0, fmt.Errorf("list installations: %w", err)
	}

	if a.cfg.Org == "" {
		if len(installations) == 1 {
			return installations[0].ID, nil
		}
		return 0, fmt.Errorf("config: %w", githubapp.NewClientErrorWithDetails(githubapp.ErrCodeConfigurationError,
			"installation is ambiguous", fmt.Sprintf("%d installations; set %s or %s",
				len(installations), config.FieldInstallationID, config.FieldOrg)))
	}

	for _, inst := range installations {
		if strings.EqualFold(inst.Account.Login, a.cfg.Org) {
			return inst.ID, nil
		}
	}
	return 0, fmt.Errorf("list installations: %w", githubapp.NewClientErrorWithDetails(githubapp.ErrCodeNotFound,
		"app is not installed on account", a.cfg.Org))
}

// installationToken runs sign -> resolve -> exchange and returns the token string.
func (a *app) installationToken(ctx context.Context) (string, error) {
	assertion, err := a.client.Assertion()
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	installationID, err := a.resolveInstallation(ctx, assertion)
	if err != nil {
		return "", err
	}
	token, err := a.client.ExchangeToken(ctx, assertion, installationID, a.permissions...)
	a.metrics.TokenExchanged(err)
	if err != nil {
		return "", fmt.Errorf("exchange token: %w", err)
	}
	return token.Token, nil
}

func (a *app) createRepoCommand() *cobra.Command {
	var request githubapp.RepositoryRequest
	var private bool
	cmd := &cobra.Command{
		Use:   "create-repo",
		Short: "Create a repository in the organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			if request.Name != "" {
				a.cfg.RepoName = request.Name
			}
			if err := a.cfg.Require(config.FieldOrg, config.FieldRepoName); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			request.Name = a.cfg.RepoName
			if cmd.Flags().Changed("private") {
				request.Private = &private
			}

			token, err := a.installationToken(cmd.Context())
			if err != nil {
				return err
			}
			repo, err := a.client.CreateRepository(cmd.Context(), token, a.cfg.Org, request)
			if err != nil {
				return fmt.Errorf("create repository: %w", err)
			}
			return a.print(repo, func(p *printer) {
				p.line("Created %s (%s)", repo.FullName, repo.Visibility)
				p.line("%s", repo.HTMLURL)
			})
		},
	}
	cmd.Flags().StringVar(&request.Name, "name", "", "repository name (env DEMO_GITHUB_REPO_NAME)")
	cmd.Flags().StringVar(&request.Description, "description", "", "repository description")
	cmd.Flags().StringVar(&request.Visibility, "visibility", "", "public|private|internal")
	cmd.Flags().BoolVar(&private, "private", false, "create a private repository")
	return cmd
}

func (a *app) rulesetsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rulesets",
		Short: "List or create organization rulesets",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the organization's rulesets",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Require(config.FieldOrg); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			token, err := a.installationToken(cmd.Context())
			if err != nil {
				return err
			}
			rulesets, err := a.client.ListRulesets(cmd.Context(), token, a.cfg.Org)
			if err != nil {
				return fmt.Errorf("list rulesets: %w", err)
			}
			return a.print(rulesets, func(p *printer) {
				for _, rs := range rulesets {
					p.line("%d\t%s\t%s\t%s", rs.ID, rs.Name, rs.Target, rs.Enforcement)
				}
			})
		},
	}

	var file string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a ruleset from a YAML definition (or the built-in default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Require(config.FieldOrg); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			ruleset := config.DefaultRuleset()
			if file != "" {
				var err error
				if ruleset, err = config.LoadRuleset(file); err != nil {
					return fmt.Errorf("config: %w", err)
				}
			}

			token, err := a.installationToken(cmd.Context())
			if err != nil {
				return err
			}
			created, err := a.client.CreateRuleset(cmd.Context(), token, a.cfg.Org, *ruleset)
			if err != nil {
				return fmt.Errorf("create ruleset: %w", err)
			}
			return a.print(created, func(p *printer) {
				p.line("Created ruleset %d %q (%s, %s)", created.ID, created.Name, created.Target, created.Enforcement)
			})
		},
	}
	create.Flags().StringVarP(&file, "file", "f", "", "YAML ruleset definition")

	cmd.AddCommand(list, create)
	return cmd
}
