// Package app wires repositories, services, and the HTTP handler for the
// package index server.
package app

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/robfig/cron/v3"

	"pkgindex/internal/api"
	"pkgindex/internal/config"
	"pkgindex/internal/db/repository"
	"pkgindex/internal/service/governance"
	"pkgindex/internal/service/index"
	"pkgindex/internal/service/security"
)

// Deps holds the external dependencies that main() must provide: database
// handles, config, and the logger.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// Services groups the service layer for the API handler and for command-line
// tooling that bypasses HTTP.
type Services struct {
	Identity   *security.IdentityService
	Permission *security.PermissionService
	User       *security.UserService
	Token      *security.TokenService
	Group      *security.GroupService
	Audit      *governance.AuditService
	Resolver   *index.Resolver
}

// App is the fully wired application.
type App struct {
	Services Services
	Handler  http.Handler
	cron     *cron.Cron
	logger   *slog.Logger
}

// New wires repositories and services from the provided deps and builds the
// HTTP router.
func New(deps Deps) *App {
	cfg := deps.Cfg

	// Write-pool repositories handle every mutation path, and the reads
	// those paths depend on for correctness (duplicate checks, cascades).
	userRepo := repository.NewUserRepo(deps.WriteDB)
	tokenRepo := repository.NewTokenRepo(deps.WriteDB)
	groupRepo := repository.NewGroupRepo(deps.WriteDB)
	grantRepo := repository.NewGrantRepo(deps.WriteDB)
	auditRepo := repository.NewAuditRepo(deps.WriteDB)

	// Identity resolution and audit listing only read; they run on the read
	// pool so per-request authentication never queues behind the single
	// write connection.
	userReads := repository.NewUserRepo(deps.ReadDB)
	tokenReads := repository.NewTokenRepo(deps.ReadDB)
	groupReads := repository.NewGroupRepo(deps.ReadDB)
	auditReads := repository.NewAuditRepo(deps.ReadDB)

	admin := security.AdminAccount{
		Enabled:  cfg.Auth.AdminEnabled,
		Username: cfg.Auth.AdminUsername,
		Password: cfg.Auth.AdminPassword,
	}

	identitySvc := security.NewIdentityService(userReads, tokenReads, groupReads, admin)
	permissionSvc := security.NewPermissionService(grantRepo, auditRepo)
	userSvc := security.NewUserService(userRepo, permissionSvc, auditRepo, admin)
	tokenSvc := security.NewTokenService(tokenRepo, permissionSvc, auditRepo)
	groupSvc := security.NewGroupService(groupRepo, userRepo, tokenRepo, permissionSvc, auditRepo)
	auditSvc := governance.NewAuditService(auditRepo, auditReads, deps.Logger.With("component", "audit"))

	store := index.NewLocalStore(cfg.IndexRoot)
	resolver := index.NewResolver(store, cfg.Proxies, nil, cfg.ProxyTimeout,
		deps.Logger.With("component", "resolver"))

	services := Services{
		Identity:   identitySvc,
		Permission: permissionSvc,
		User:       userSvc,
		Token:      tokenSvc,
		Group:      groupSvc,
		Audit:      auditSvc,
		Resolver:   resolver,
	}

	handler := api.NewAPIHandler(cfg, identitySvc, permissionSvc, userSvc,
		tokenSvc, groupSvc, auditSvc, resolver, deps.Logger.With("component", "api"))

	c := cron.New()
	if err := auditSvc.ScheduleRetention(c, cfg.AuditRetention); err != nil {
		deps.Logger.Warn("audit retention not scheduled", "error", err)
	}

	return &App{
		Services: services,
		Handler:  api.NewRouter(handler, identitySvc, cfg),
		cron:     c,
		logger:   deps.Logger,
	}
}

// Start launches background jobs. It returns immediately.
func (a *App) Start() {
	a.cron.Start()
}

// Stop halts background jobs and waits for running ones to finish.
func (a *App) Stop() {
	ctx := a.cron.Stop()
	<-ctx.Done()
}
