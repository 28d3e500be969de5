package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/stakepot/stakepot/internal/domain/audit"
)

// AuditRepository implements audit.Repository. The table is append-only.
type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Create(ctx context.Context, e *audit.Entry) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO transfer_audit
		(entry_id, kind, short_id, from_account, to_account, amount, outcome, receipt_id, error, actor, created_at, signature)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id
	`, e.EntryID, e.Kind, e.ShortID, e.FromAccount, e.ToAccount, e.Amount.String(), e.Outcome, e.ReceiptID, e.Error, e.Actor, e.CreatedAt, e.Signature)
	return row.Scan(&e.ID)
}

func (r *AuditRepository) List(ctx context.Context, filter audit.Filter, limit, offset int) ([]*audit.Entry, error) {
	query := `SELECT id, entry_id, kind, short_id, from_account, to_account, amount::text, outcome, receipt_id, error, actor, created_at, signature FROM transfer_audit`
	args := []interface{}{}
	idx := 1
	if filter.Kind != nil {
		query += addWhere(query) + " kind=$" + itoa(idx)
		args = append(args, *filter.Kind)
		idx++
	}
	if filter.ShortID != nil {
		query += addWhere(query) + " short_id=$" + itoa(idx)
		args = append(args, *filter.ShortID)
		idx++
	}
	if filter.Account != nil {
		query += addWhere(query) + " (from_account=$" + itoa(idx) + " OR to_account=$" + itoa(idx) + ")"
		args = append(args, *filter.Account)
		idx++
	}
	if filter.Since != nil {
		query += addWhere(query) + " created_at >= $" + itoa(idx)
		args = append(args, *filter.Since)
		idx++
	}
	if filter.Until != nil {
		query += addWhere(query) + " created_at <= $" + itoa(idx)
		args = append(args, *filter.Until)
		idx++
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*audit.Entry
	for rows.Next() {
		var (
			e      audit.Entry
			amount string
		)
		if err := rows.Scan(&e.ID, &e.EntryID, &e.Kind, &e.ShortID, &e.FromAccount, &e.ToAccount, &amount, &e.Outcome, &e.ReceiptID, &e.Error, &e.Actor, &e.CreatedAt, &e.Signature); err != nil {
			return nil, err
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("bad amount value %q: %w", amount, err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
