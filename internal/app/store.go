package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	incidentspostgres "github.com/lotfimay/FollowUP-GRP4/internal/incidents/postgres"
	incidentssqlite "github.com/lotfimay/FollowUP-GRP4/internal/incidents/sqlite"
	"github.com/lotfimay/FollowUP-GRP4/internal/pkg/metrics"
)

type postgresStore struct {
	*incidentspostgres.Repository
	pool *pgxpool.Pool
}

func (s *postgresStore) recordMetrics() {
	metrics.RecordDBPoolMetrics(s.pool)
}

func (s *postgresStore) close() {
	s.pool.Close()
}

type sqliteStore struct {
	*incidentssqlite.Repository
}

func (s *sqliteStore) recordMetrics() {
	db, err := s.DB()
	if err != nil {
		return
	}
	metrics.RecordSQLDBMetrics(db)
}

func (s *sqliteStore) close() {
	if err := s.Close(); err != nil {
		slog.Warn("failed to close sqlite store", "error", err)
	}
}
