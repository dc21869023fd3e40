package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"IgniteX/internal/domain/models"
	domrepo "IgniteX/internal/domain/repository"
	pkgch "IgniteX/pkg/clickhouse"
	applogger "IgniteX/pkg/logger"
)

// CHSignalArchive stores admitted signals and resolved outcomes in
// ClickHouse for offline analysis and model retraining.
type CHSignalArchive struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHSignalArchive(ch *pkgch.Client) *CHSignalArchive {
	return &CHSignalArchive{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (a *CHSignalArchive) SetLogger(l *applogger.Logger) { a.l = l }

// SchemaStatements returns the idempotent DDL for the archive tables.
func SchemaStatements(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.signals (
            id String,
            instrument LowCardinality(String),
            direction LowCardinality(String),
            tier LowCardinality(String),
            regime LowCardinality(String),
            confidence Float64,
            agreement Float64,
            entry Float64,
            targets Array(Float64),
            stop Float64,
            lead_strategy LowCardinality(String),
            reason String,
            expiry_minutes Float64,
            created_at DateTime64(3, 'UTC')
        ) ENGINE = MergeTree()
        PARTITION BY toYYYYMM(created_at)
        ORDER BY (instrument, created_at)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.outcomes (
            signal_id String,
            instrument LowCardinality(String),
            direction LowCardinality(String),
            class LowCardinality(String),
            exit_price Float64,
            return_pct Float64,
            duration_sec Float64,
            regime LowCardinality(String),
            strategies Array(String),
            training_value Float64,
            resolved_at DateTime64(3, 'UTC')
        ) ENGINE = MergeTree()
        PARTITION BY toYYYYMM(resolved_at)
        ORDER BY (instrument, resolved_at)`, database),
	}
}

func (a *CHSignalArchive) ArchiveSignal(ctx context.Context, s models.AdmittedSignal) error {
	const q = `
        INSERT INTO signals
            (id, instrument, direction, tier, regime, confidence, agreement,
             entry, targets, stop, lead_strategy, reason, expiry_minutes, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := a.db.ExecContext(ctx, q,
		s.ID,
		s.Verdict.Instrument,
		string(s.Verdict.Direction),
		string(s.Verdict.Tier),
		string(s.Verdict.Regime),
		s.Verdict.Confidence,
		s.Verdict.AgreementScore,
		s.Entry,
		s.Targets,
		s.Stop,
		s.LeadStrategy,
		s.Reason,
		s.ExpiryMinutes,
		s.CreatedAt,
	)
	if err != nil {
		if a.l != nil {
			a.l.Error("clickhouse archive_signal error",
				applogger.String("signal", s.ID),
				applogger.Error(err))
		}
		return fmt.Errorf("archive signal: %w", err)
	}
	return nil
}

func (a *CHSignalArchive) ArchiveOutcome(ctx context.Context, o models.OutcomeRecord) error {
	const q = `
        INSERT INTO outcomes
            (signal_id, instrument, direction, class, exit_price, return_pct,
             duration_sec, regime, strategies, training_value, resolved_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := a.db.ExecContext(ctx, q,
		o.SignalID,
		o.Instrument,
		string(o.Direction),
		string(o.Class),
		o.ExitPrice,
		o.ReturnPct,
		o.Duration.Seconds(),
		string(o.Regime),
		o.Strategies,
		o.TrainingValue,
		o.ResolvedAt,
	)
	if err != nil {
		if a.l != nil {
			a.l.Error("clickhouse archive_outcome error",
				applogger.String("signal", o.SignalID),
				applogger.Error(err))
		}
		return fmt.Errorf("archive outcome: %w", err)
	}
	return nil
}

func (a *CHSignalArchive) RecentOutcomes(ctx context.Context, limit int) ([]models.OutcomeRecord, error) {
	const q = `
        SELECT signal_id, instrument, direction, class, exit_price, return_pct,
               duration_sec, regime, strategies, training_value, resolved_at
        FROM outcomes
        ORDER BY resolved_at DESC
        LIMIT ?
    `
	rows, err := a.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("recent outcomes: %w", err)
	}
	defer rows.Close()

	out := make([]models.OutcomeRecord, 0, limit)
	for rows.Next() {
		var (
			rec         models.OutcomeRecord
			direction   string
			class       string
			regime      string
			durationSec float64
			strategies  []string
			resolvedAt  time.Time
		)
		if err := rows.Scan(&rec.SignalID, &rec.Instrument, &direction, &class,
			&rec.ExitPrice, &rec.ReturnPct, &durationSec, &regime,
			&strategies, &rec.TrainingValue, &resolvedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		rec.Direction = models.Direction(direction)
		rec.Class = models.OutcomeClass(class)
		rec.Regime = models.Regime(regime)
		rec.Duration = time.Duration(durationSec * float64(time.Second))
		rec.Strategies = strategies
		rec.ResolvedAt = resolvedAt
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (a *CHSignalArchive) Close() error { return nil }

var _ domrepo.SignalArchive = (*CHSignalArchive)(nil)
