package container

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/buildtrack/patchhub/cmd/patchhub/service"
	"github.com/buildtrack/patchhub/common/bootstrap"
	"github.com/buildtrack/patchhub/common/clients"
	"github.com/buildtrack/patchhub/common/config"
	"github.com/buildtrack/patchhub/common/mail"
	"github.com/buildtrack/patchhub/common/models"
	rediscommon "github.com/buildtrack/patchhub/common/redis"
	"github.com/buildtrack/patchhub/common/repository"
	"github.com/buildtrack/patchhub/common/rules"
)

// Container holds all initialized repositories and services (singleton
// pattern: everything is created once at startup)
type Container struct {
	Components *bootstrap.Components
	Redis      *rediscommon.Client

	// Repositories
	PatchRepo    *repository.PatchRepository
	FixRepo      *repository.FixRepository
	ApprovalRepo *repository.ApprovalRepository
	OwnerRepo    *repository.OwnerRepository
	CommentRepo  *repository.CommentRepository
	AccountRepo  *repository.AccountRepository
	BugRepo      *repository.BugRepository
	CatalogRepo  *repository.CatalogRepository

	// Services
	Patches   *service.PatchService
	Fixes     *service.FixService
	Approvals *service.ApprovalService
	Origins   *service.OriginService
	Notify    *service.NotifyService
	Jobs      *service.JobService
	Catalog   *service.CatalogService
}

// NewContainer initializes all services and repositories once
func NewContainer(ctx context.Context, components *bootstrap.Components) (*Container, error) {
	cfg := components.Config
	log := components.Logger

	c := &Container{Components: components}

	if cfg.Redis.Enabled {
		raw := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
		})
		c.Redis = rediscommon.NewClient(raw, log)
	}

	// Repositories
	c.PatchRepo = repository.NewPatchRepository(components.DB)
	c.FixRepo = repository.NewFixRepository(components.DB)
	c.ApprovalRepo = repository.NewApprovalRepository(components.DB)
	c.OwnerRepo = repository.NewOwnerRepository(components.DB)
	c.CommentRepo = repository.NewCommentRepository(components.DB)
	c.AccountRepo = repository.NewAccountRepository(components.DB)
	c.BugRepo = repository.NewBugRepository(components.DB)
	c.CatalogRepo = repository.NewCatalogRepository(components.DB)

	// Services, bottom-up: CI and notification first, then the workflow
	// services that depend on them
	var jobClient clients.JobClient
	if cfg.Jenkins.URL != "" {
		jc, err := clients.NewJenkinsClient(cfg.Jenkins, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create jenkins client: %w", err)
		}
		jobClient = jc
	} else {
		log.Warn("JENKINS_URL not set, CI job operations disabled")
	}
	c.Jobs = service.NewJobService(jobClient, cfg.Jenkins.ScriptDir, log)

	var mailer mail.Mailer = mail.NopMailer{}
	if cfg.Mail.Enabled {
		mailer = mail.NewSMTPMailer(cfg.Mail, log)
	}
	c.Notify = service.NewNotifyService(components.Queue, mailer, c.AccountRepo,
		cfg.Service.BaseURL, log)

	matcher, err := rules.NewMatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create pattern matcher: %w", err)
	}

	cache := service.NewFixCache(c.Redis, cfg.Redis.FixTTL)

	c.Patches = service.NewPatchService(c.PatchRepo, c.FixRepo, c.ApprovalRepo,
		c.OwnerRepo, c.CommentRepo, c.AccountRepo, c.Notify, log)
	c.Fixes = service.NewFixService(c.PatchRepo, c.FixRepo, c.ApprovalRepo,
		c.BugRepo, cache, c.Jobs, log)
	c.Approvals = service.NewApprovalService(c.PatchRepo, c.FixRepo, c.ApprovalRepo,
		c.AccountRepo, matcher, c.Notify, c.Jobs, log)
	c.Origins = service.NewOriginService(c.PatchRepo, c.FixRepo, log)
	c.Catalog = service.NewCatalogService(c.CatalogRepo, log)

	if err := c.seedApproverGroups(ctx); err != nil {
		return nil, err
	}

	if err := c.Notify.StartDispatcher(ctx); err != nil {
		return nil, fmt.Errorf("failed to start mail dispatcher: %w", err)
	}

	return c, nil
}

// seedApproverGroups loads approver-group rules from the configured
// YAML file into the database
func (c *Container) seedApproverGroups(ctx context.Context) error {
	loaded, err := config.LoadApproverRules(c.Components.Config.Approver.RulesFile)
	if err != nil {
		return fmt.Errorf("failed to load approver rules: %w", err)
	}
	if len(loaded) == 0 {
		return nil
	}

	groups := make([]models.ApproverGroup, 0, len(loaded))
	for _, rule := range loaded {
		status, err := models.ParseRequestStatus(rule.Status)
		if err != nil {
			return fmt.Errorf("approver rule for group %q: %w", rule.Group, err)
		}
		groups = append(groups, models.ApproverGroup{
			Group:               rule.Group,
			Status:              status,
			BuildVersionPattern: rule.Pattern,
		})
	}

	if err := c.ApprovalRepo.SeedGroups(ctx, groups); err != nil {
		return err
	}
	c.Components.Logger.Info("approver groups seeded", "rules", len(groups))
	return nil
}
