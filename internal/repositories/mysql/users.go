package mysql

import (
	"context"
	"database/sql"

	"campusride/internal/domain/models"
)

const userColumns = `id, name, email, password_hash, phone, university, student_id, is_driver,
	COALESCE(bio, ''), rating, review_count, created_at, updated_at`

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Phone,
		&u.University,
		&u.StudentID,
		&u.IsDriver,
		&u.Bio,
		&u.Rating,
		&u.ReviewCount,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	now := s.now()
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO users (name, email, password_hash, phone, university, student_id, is_driver, bio,
			rating, review_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)`,
		user.Name, user.Email, user.PasswordHash, user.Phone, user.University, user.StudentID,
		user.IsDriver, nullString(user.Bio), now, now,
	)
	if err != nil {
		return models.User{}, mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, err
	}
	user.ID = id
	user.Rating = 0
	user.ReviewCount = 0
	user.CreatedAt = now
	user.UpdatedAt = now
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	u, err := scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id))
	return u, mapErr(err)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	u, err := scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`, email))
	return u, mapErr(err)
}

func (s *Store) UpdateUser(ctx context.Context, user models.User) (models.User, error) {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE users
		SET name = ?, phone = ?, university = ?, student_id = ?, is_driver = ?, bio = ?, updated_at = ?
		WHERE id = ?`,
		user.Name, user.Phone, user.University, user.StudentID, user.IsDriver, nullString(user.Bio), s.now(), user.ID,
	)
	if err != nil {
		return models.User{}, mapErr(err)
	}
	if err := requireAffected(res); err != nil {
		// MySQL reports 0 affected rows when nothing changed; confirm existence.
		if _, getErr := s.GetUser(ctx, user.ID); getErr != nil {
			return models.User{}, getErr
		}
	}
	return s.GetUser(ctx, user.ID)
}

// updateRating writes a recomputed aggregate inside an open transaction.
func updateRating(ctx context.Context, tx *sql.Tx, userID int64, summary models.RatingSummary) error {
	_, err := tx.ExecContext(ctx, `UPDATE users SET rating = ?, review_count = ? WHERE id = ?`,
		summary.Rating, summary.ReviewCount, userID)
	return err
}
