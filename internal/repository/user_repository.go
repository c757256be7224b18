package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"filevault/internal/database"
	"filevault/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

const uniqueViolation = "23505"

const userColumns = `id, email, first_name, last_name, address, phone, age, password_hash,
		       no_of_files_uploaded, is_active, is_admin, created_at, updated_at, last_login`

type UserRepository struct {
	db database.DB
}

func NewUserRepository(db database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	const query = `
		INSERT INTO users (
			email, first_name, last_name, address, phone, age, password_hash, is_active, is_admin
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		RETURNING id, no_of_files_uploaded, created_at, updated_at
	`

	err := database.Conn(ctx, r.db).QueryRow(ctx, query,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Address,
		user.Phone,
		user.Age,
		user.PasswordHash,
		user.IsActive,
		user.IsAdmin,
	).Scan(&user.ID, &user.NoOfFilesUploaded, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return scanUser(database.Conn(ctx, r.db).QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(database.Conn(ctx, r.db).QueryRow(ctx, query, id))
}

// LockByID reads the user row and holds a row lock until the surrounding
// transaction ends.
func (r *UserRepository) LockByID(ctx context.Context, id int64) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	return scanUser(database.Conn(ctx, r.db).QueryRow(ctx, query, id))
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash []byte) error {
	const query = `
		UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1
	`
	return r.execOne(ctx, query, id, passwordHash)
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	const query = `UPDATE users SET last_login = $2 WHERE id = $1`
	return r.execOne(ctx, query, id, at)
}

// AdjustUploadedCount adds delta to the cached counter, floored at zero, and
// returns the new value.
func (r *UserRepository) AdjustUploadedCount(ctx context.Context, id int64, delta int) (int, error) {
	const query = `
		UPDATE users
		SET no_of_files_uploaded = GREATEST(no_of_files_uploaded + $2, 0),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING no_of_files_uploaded
	`
	var count int
	if err := database.Conn(ctx, r.db).QueryRow(ctx, query, id, delta).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return count, nil
}

// ReconcileUploadCounts rewrites every counter that disagrees with the files
// table and returns how many users were corrected. Each user is fixed in its
// own transaction with the row locked first, so the count is read after any
// in-flight upload or delete for that user has committed.
func (r *UserRepository) ReconcileUploadCounts(ctx context.Context) (int64, error) {
	ids, err := r.allIDs(ctx)
	if err != nil {
		return 0, err
	}

	txm := database.NewTxManager(r.db)
	var fixed int64
	for _, id := range ids {
		err := txm.WithinTx(ctx, func(ctx context.Context) error {
			n, err := r.reconcileOne(ctx, id)
			fixed += n
			return err
		})
		if err != nil {
			return fixed, fmt.Errorf("reconcile user %d: %w", id, err)
		}
	}
	return fixed, nil
}

func (r *UserRepository) allIDs(ctx context.Context) ([]int64, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *UserRepository) reconcileOne(ctx context.Context, id int64) (int64, error) {
	const lock = `SELECT id FROM users WHERE id = $1 FOR UPDATE`
	const update = `
		UPDATE users
		SET no_of_files_uploaded = c.actual,
		    updated_at = NOW()
		FROM (SELECT COUNT(*)::int AS actual FROM files WHERE user_id = $1) c
		WHERE users.id = $1 AND users.no_of_files_uploaded <> c.actual
	`
	conn := database.Conn(ctx, r.db)

	var locked int64
	if err := conn.QueryRow(ctx, lock, id).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}

	cmd, err := conn.Exec(ctx, update, id)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT $1 OFFSET $2`

	rows, err := database.Conn(ctx, r.db).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := database.Conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *UserRepository) execOne(ctx context.Context, query string, args ...any) error {
	cmd, err := database.Conn(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Address,
		&user.Phone,
		&user.Age,
		&user.PasswordHash,
		&user.NoOfFilesUploaded,
		&user.IsActive,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastLogin,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
