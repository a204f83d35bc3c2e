package branches

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository lists the branches available to a user.
type Repository interface {
	ListForUser(ctx context.Context, userID string) ([]Branch, error)
}

// PGRepository reads branch membership from postgres.
type PGRepository struct {
	db *pgxpool.Pool
}

// NewPGRepository constructs a PGRepository.
func NewPGRepository(db *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: db}
}

// ListForUser returns the user's branches ordered by name.
func (r *PGRepository) ListForUser(ctx context.Context, userID string) ([]Branch, error) {
	const query = `SELECT b.id::text, b.code, b.name, COALESCE(b.address, ''), ub.is_primary, b.created_at
FROM user_branches ub
JOIN branches b ON b.id = ub.branch_id
WHERE ub.user_id = $1
ORDER BY b.name ASC, b.id ASC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Branch
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.ID, &b.Code, &b.Name, &b.Address, &b.IsPrimary, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
