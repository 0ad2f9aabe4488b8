package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrec/pkg/models"
)

// DatabaseQuerier is the subset of pgxpool.Pool the repository needs.
type DatabaseQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

const (
	insertRecommendationSQL = `
		INSERT INTO recommendations (user_id, movie_id, score, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	listByUserSQL = `
		SELECT id, user_id, movie_id, score, reason, created_at
		FROM recommendations
		WHERE user_id = $1
		ORDER BY score DESC, id ASC
		LIMIT $2`
)

// RecommendationRepository stores recommendation rows. Rows are only ever
// appended; nothing here updates or deletes.
type RecommendationRepository struct {
	db     DatabaseQuerier
	logger *logrus.Logger
}

func NewRecommendationRepository(db DatabaseQuerier, logger *logrus.Logger) *RecommendationRepository {
	return &RecommendationRepository{
		db:     db,
		logger: logger,
	}
}

// Insert appends a single entry and returns the stored row.
func (r *RecommendationRepository) Insert(ctx context.Context, entry models.RecommendationEntry) (*models.StoredRecommendation, error) {
	stored := &models.StoredRecommendation{
		UserID:  entry.UserID,
		MovieID: entry.MovieID,
		Score:   entry.Score,
		Reason:  entry.Reason,
	}

	err := r.db.QueryRow(ctx, insertRecommendationSQL,
		entry.UserID, entry.MovieID, entry.Score, entry.Reason, entry.CreatedAt,
	).Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert recommendation: %w", err)
	}

	return stored, nil
}

// InsertBatch appends entries in one transaction; either all rows land or none.
func (r *RecommendationRepository) InsertBatch(ctx context.Context, entries []models.RecommendationEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, entry := range entries {
		if _, err := tx.Exec(ctx, insertRecommendationSQL,
			entry.UserID, entry.MovieID, entry.Score, entry.Reason, entry.CreatedAt,
		); err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				r.logger.WithError(rbErr).Warn("Failed to roll back recommendation batch")
			}
			return fmt.Errorf("failed to insert recommendation for movie %d: %w", entry.MovieID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit recommendations: %w", err)
	}

	return nil
}

// ListByUser returns a user's stored rows, best score first, ties by id.
// A user without rows gets an empty, non-nil slice.
func (r *RecommendationRepository) ListByUser(ctx context.Context, userID, limit int) ([]models.StoredRecommendation, error) {
	rows, err := r.db.Query(ctx, listByUserSQL, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	recommendations := make([]models.StoredRecommendation, 0, limit)
	for rows.Next() {
		var rec models.StoredRecommendation
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.MovieID, &rec.Score, &rec.Reason, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		recommendations = append(recommendations, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recommendations: %w", err)
	}

	return recommendations, nil
}

func (r *RecommendationRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
