package scan

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore persists scan assessments in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed scan audit store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the scan_assessments table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS scan_assessments (
			id                VARCHAR(36) PRIMARY KEY,
			contract_address  VARCHAR(42) NOT NULL DEFAULT '',
			scam_probability  NUMERIC(5,4) NOT NULL CHECK (scam_probability >= 0 AND scam_probability <= 1),
			verdict           VARCHAR(10) NOT NULL CHECK (verdict IN ('SAFE', 'WARN', 'BLOCK')),
			risk_band         VARCHAR(10) NOT NULL CHECK (risk_band IN ('LOW', 'MEDIUM', 'HIGH')),
			reason            TEXT NOT NULL,
			model_version     VARCHAR(64) NOT NULL,
			evaluated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_scan_assessments_recent
			ON scan_assessments (evaluated_at DESC);

		CREATE INDEX IF NOT EXISTS idx_scan_assessments_blocks
			ON scan_assessments (evaluated_at DESC) WHERE verdict = 'BLOCK';
	`)
	return err
}

func (s *PostgresStore) Record(ctx context.Context, assessment *Assessment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_assessments
			(id, contract_address, scam_probability, verdict, risk_band, reason, model_version, evaluated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		assessment.ID,
		assessment.ContractAddress,
		assessment.ScamProbability,
		string(assessment.Verdict),
		string(assessment.RiskBand),
		assessment.Reason,
		assessment.ModelVersion,
		assessment.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record scan assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*Assessment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contract_address, scam_probability, verdict, risk_band, reason, model_version, evaluated_at
		FROM scan_assessments
		ORDER BY evaluated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scan assessments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Assessment
	for rows.Next() {
		var a Assessment
		var evaluatedAt time.Time

		if err := rows.Scan(&a.ID, &a.ContractAddress, &a.ScamProbability, &a.Verdict,
			&a.RiskBand, &a.Reason, &a.ModelVersion, &evaluatedAt); err != nil {
			continue
		}
		a.EvaluatedAt = evaluatedAt
		result = append(result, &a)
	}
	return result, nil
}
