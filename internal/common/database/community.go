package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nyc-kinder-workers/internal/models"
)

var (
	ErrDuplicateFavorite = errors.New("favorite already exists")
	ErrFavoriteNotFound  = errors.New("favorite not found")
	ErrReviewNotFound    = errors.New("review not found")
)

// FavoriteStore persists the schools a user has starred.
type FavoriteStore struct {
	db *sql.DB
}

func NewFavoriteStore(db *sql.DB) *FavoriteStore {
	return &FavoriteStore{db: db}
}

// Add inserts f. A second favorite for the same user and school is
// ErrDuplicateFavorite.
func (s *FavoriteStore) Add(ctx context.Context, f models.Favorite) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO favorites (id, user_id, dbn, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, dbn) DO NOTHING`,
		f.ID, f.UserID, f.DBN, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: user %s, school %s", ErrDuplicateFavorite, f.UserID, f.DBN)
	}
	return nil
}

func (s *FavoriteStore) Get(ctx context.Context, id string) (models.Favorite, error) {
	var f models.Favorite
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, dbn, created_at FROM favorites WHERE id = $1`, id,
	).Scan(&f.ID, &f.UserID, &f.DBN, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Favorite{}, fmt.Errorf("%w: %s", ErrFavoriteNotFound, id)
	}
	if err != nil {
		return models.Favorite{}, fmt.Errorf("get favorite %s: %w", id, err)
	}
	return f, nil
}

func (s *FavoriteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM favorites WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete favorite %s: %w", id, err)
	}
	return nil
}

// ListByUser returns a user's favorites, newest first.
func (s *FavoriteStore) ListByUser(ctx context.Context, userID string) ([]models.Favorite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, dbn, created_at
		FROM favorites
		WHERE user_id = $1
		ORDER BY created_at DESC, dbn`, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	favorites := []models.Favorite{}
	for rows.Next() {
		var f models.Favorite
		if err := rows.Scan(&f.ID, &f.UserID, &f.DBN, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}

// ReviewStore persists parent reviews of schools.
type ReviewStore struct {
	db *sql.DB
}

func NewReviewStore(db *sql.DB) *ReviewStore {
	return &ReviewStore{db: db}
}

func (s *ReviewStore) Insert(ctx context.Context, r models.Review) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (id, user_id, dbn, rating, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.UserID, r.DBN, r.Rating, r.Body, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (s *ReviewStore) Get(ctx context.Context, id string) (models.Review, error) {
	var r models.Review
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, dbn, rating, body, created_at FROM reviews WHERE id = $1`, id,
	).Scan(&r.ID, &r.UserID, &r.DBN, &r.Rating, &r.Body, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Review{}, fmt.Errorf("%w: %s", ErrReviewNotFound, id)
	}
	if err != nil {
		return models.Review{}, fmt.Errorf("get review %s: %w", id, err)
	}
	return r, nil
}

func (s *ReviewStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete review %s: %w", id, err)
	}
	return nil
}

// ListBySchool returns the reviews of a school, newest first.
func (s *ReviewStore) ListBySchool(ctx context.Context, dbn string) ([]models.Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, dbn, rating, body, created_at
		FROM reviews
		WHERE dbn = $1
		ORDER BY created_at DESC, id`, dbn)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.UserID, &r.DBN, &r.Rating, &r.Body, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// Summarize computes the review aggregate from rows already loaded.
func Summarize(dbn string, reviews []models.Review) models.ReviewSummary {
	summary := models.ReviewSummary{DBN: dbn, Count: len(reviews)}
	if len(reviews) == 0 {
		return summary
	}
	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	avg := float64(total) / float64(len(reviews))
	summary.AverageRating = float64(int(avg*10+0.5)) / 10
	return summary
}
