// Package container wires the application together.
package container

import (
	"fmt"

	"vennqca/adapters/postgres"
	"vennqca/app"
	"vennqca/internal/api"
	"vennqca/internal/config"
	"vennqca/internal/ops"
	"vennqca/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer)
	VariableRepo     ports.VariableRepository
	ProxyRepo        ports.ProxyRepository
	OrganizationRepo ports.OrganizationRepository
	MatchRepo        ports.MatchRepository
	IntersectionRepo ports.IntersectionRepository

	// Services
	IntersectionService *app.IntersectionService
	MatchService        *app.MatchService
	TruthTableService   *app.TruthTableService

	// HTTP surfaces
	API *api.Server
	Ops *ops.Server
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return &Container{Config: cfg}, nil
}

// InitWithDatabase initializes everything that needs database access, then
// builds the services and HTTP surfaces on top.
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	if err := db.Ping(); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}
	c.DB = db

	c.VariableRepo = postgres.NewVariableRepository(db)
	c.ProxyRepo = postgres.NewProxyRepository(db)
	c.OrganizationRepo = postgres.NewOrganizationRepository(db)
	c.MatchRepo = postgres.NewMatchRepository(db)
	c.IntersectionRepo = postgres.NewIntersectionRepository(db)

	c.IntersectionService = app.NewIntersectionService(
		c.IntersectionRepo, c.VariableRepo, c.ProxyRepo, c.MatchRepo,
		c.Config.Engine.VariableModeOperator,
		c.Config.Engine.MaxExpressionDepth,
		c.Config.Engine.TreeCacheTTL,
	)
	c.MatchService = app.NewMatchService(c.MatchRepo, c.ProxyRepo)
	c.TruthTableService = app.NewTruthTableService(
		c.OrganizationRepo, c.IntersectionService, c.Config.Engine.ExportParallelism)

	c.API = api.NewServer(api.Deps{
		Variables:     c.VariableRepo,
		Proxies:       c.ProxyRepo,
		Organizations: c.OrganizationRepo,
		Intersections: c.IntersectionService,
		Matches:       c.MatchService,
		TruthTable:    c.TruthTableService,
	})
	c.Ops = ops.NewServer(db)
	return nil
}

// Close releases held resources.
func (c *Container) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
