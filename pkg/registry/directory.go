// Package registry resolves agent credentials against the identity
// directory. The directory is an external collaborator: the arena reads
// agent identity and standing from it but never writes. Rating movements
// are emitted as persistence events, not written back here.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jediswimmer/ironcurtain/pkg/config"
	"github.com/jediswimmer/ironcurtain/pkg/models"
)

var (
	// ErrUnknownAgent indicates the credential matches no registered agent.
	ErrUnknownAgent = errors.New("unknown agent credential")

	// ErrAgentSuspended indicates the agent exists but may not compete.
	ErrAgentSuspended = errors.New("agent is suspended")
)

// Directory looks up agents by API credential.
type Directory interface {
	// Lookup resolves an API key to an active agent. Suspended and retired
	// agents fail with ErrAgentSuspended.
	Lookup(ctx context.Context, apiKey string) (*models.Agent, error)

	Close()
}

// PostgresDirectory reads the agent directory from Postgres.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresDirectory connects to the directory database and verifies the
// connection.
func NewPostgresDirectory(ctx context.Context, dsn string) (*PostgresDirectory, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open agent directory: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping agent directory: %w", err)
	}
	return &PostgresDirectory{pool: pool}, nil
}

func (d *PostgresDirectory) Lookup(ctx context.Context, apiKey string) (*models.Agent, error) {
	const q = `
		SELECT id, display_name, status, rating, peak_rating,
		       wins, losses, draws, created_at
		FROM agents
		WHERE api_key = $1`

	var agent models.Agent
	var status string
	err := d.pool.QueryRow(ctx, q, apiKey).Scan(
		&agent.ID, &agent.DisplayName, &status,
		&agent.Rating.Global, &agent.Rating.Peak,
		&agent.Rating.Record.Wins, &agent.Rating.Record.Losses, &agent.Rating.Record.Draws,
		&agent.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUnknownAgent
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up agent: %w", err)
	}
	agent.Status = models.AgentStatus(status)

	if err := d.loadModeRatings(ctx, &agent); err != nil {
		return nil, err
	}
	return checkStanding(&agent)
}

func (d *PostgresDirectory) loadModeRatings(ctx context.Context, agent *models.Agent) error {
	const q = `SELECT mode, rating FROM agent_mode_ratings WHERE agent_id = $1`

	rows, err := d.pool.Query(ctx, q, agent.ID)
	if err != nil {
		return fmt.Errorf("failed to load mode ratings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var mode string
		var rating int
		if err := rows.Scan(&mode, &rating); err != nil {
			return fmt.Errorf("failed to scan mode rating: %w", err)
		}
		if agent.Rating.Modes == nil {
			agent.Rating.Modes = make(map[models.Mode]int)
		}
		agent.Rating.Modes[models.Mode(mode)] = rating
	}
	return rows.Err()
}

func (d *PostgresDirectory) Close() {
	d.pool.Close()
}

// StaticDirectory serves agents seeded from configuration. Used in dev and
// test deployments where no directory database exists.
type StaticDirectory struct {
	byKey map[string]*models.Agent
}

// NewStaticDirectory builds a directory from static agent entries.
func NewStaticDirectory(agents []config.StaticAgent) *StaticDirectory {
	byKey := make(map[string]*models.Agent, len(agents))
	for _, a := range agents {
		status := models.AgentStatusActive
		if a.Suspended {
			status = models.AgentStatusSuspended
		}
		rating := a.Rating
		if rating == 0 {
			rating = 1200
		}
		byKey[a.APIKey] = &models.Agent{
			ID:          a.ID,
			DisplayName: a.DisplayName,
			Status:      status,
			Rating:      models.RatingProfile{Global: rating, Peak: rating},
		}
	}
	return &StaticDirectory{byKey: byKey}
}

func (d *StaticDirectory) Lookup(_ context.Context, apiKey string) (*models.Agent, error) {
	agent, ok := d.byKey[apiKey]
	if !ok {
		return nil, ErrUnknownAgent
	}
	copied := *agent
	return checkStanding(&copied)
}

func (d *StaticDirectory) Close() {}

func checkStanding(agent *models.Agent) (*models.Agent, error) {
	if agent.Status != models.AgentStatusActive {
		return nil, fmt.Errorf("%w: %s", ErrAgentSuspended, agent.ID)
	}
	return agent, nil
}
