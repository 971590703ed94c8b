package repository

import (
	"context"
	"errors"
	"fmt"

	"hedera-pulse/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const createTransactionsTable = `
CREATE TABLE IF NOT EXISTS hedera_transactions (
    transaction_id      TEXT        PRIMARY KEY,
    consensus_timestamp TEXT        NOT NULL,
    consensus_ns        BIGINT      NOT NULL,
    consensus_at        TIMESTAMPTZ NOT NULL,
    name                TEXT        NOT NULL,
    result              TEXT        NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_hedera_transactions_consensus_ns
    ON hedera_transactions (consensus_ns DESC);
`

type TransactionRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewTransactionRepository(pool PgxPool, tracer trace.Tracer) *TransactionRepository {
	return &TransactionRepository{pool: pool, tracer: tracer}
}

func (r *TransactionRepository) RunMigrations(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "transaction-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createTransactionsTable)
	return err
}

// Save inserts txs and returns how many were new. Transactions already stored
// are left as they are, so overlapping runs are harmless.
func (r *TransactionRepository) Save(ctx context.Context, txs []domain.Transaction) (int, error) {
	ctx, span := r.tracer.Start(ctx, "transaction-repo.save")
	defer span.End()
	span.SetAttributes(attribute.Int("hedera.tx_count", len(txs)))

	stored := 0
	for _, tx := range txs {
		tag, err := r.pool.Exec(ctx,
			`INSERT INTO hedera_transactions
			    (transaction_id, consensus_timestamp, consensus_ns, consensus_at, name, result)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (transaction_id) DO NOTHING`,
			tx.ID, tx.ConsensusTimestamp, tx.ConsensusAt.UnixNano(), tx.ConsensusAt.UTC(), tx.Name, tx.Result,
		)
		if err != nil {
			return stored, fmt.Errorf("insert transaction %s: %w", tx.ID, err)
		}
		stored += int(tag.RowsAffected())
	}
	return stored, nil
}

// LatestConsensusTimestamp returns the newest stored consensus timestamp, or
// "" when nothing has been ingested yet.
func (r *TransactionRepository) LatestConsensusTimestamp(ctx context.Context) (string, error) {
	ctx, span := r.tracer.Start(ctx, "transaction-repo.latest-consensus-timestamp")
	defer span.End()

	var ts string
	err := r.pool.QueryRow(ctx,
		`SELECT consensus_timestamp FROM hedera_transactions ORDER BY consensus_ns DESC LIMIT 1`,
	).Scan(&ts)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest consensus timestamp: %w", err)
	}
	return ts, nil
}
