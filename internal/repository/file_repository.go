package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"filevault/internal/database"
	"filevault/internal/models"
)

var ErrFileNotFound = errors.New("file not found")

const fileColumns = `id, user_id, name, object_key, uploaded_at`

type FileRepository struct {
	db database.DB
}

func NewFileRepository(db database.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, file *models.File) error {
	const query = `
		INSERT INTO files (user_id, name, object_key)
		VALUES ($1, $2, $3)
		RETURNING id, uploaded_at
	`
	return database.Conn(ctx, r.db).QueryRow(ctx, query,
		file.UserID,
		file.Name,
		file.ObjectKey,
	).Scan(&file.ID, &file.UploadedAt)
}

// GetByOwner returns the file only when it belongs to userID.
func (r *FileRepository) GetByOwner(ctx context.Context, userID, fileID int64) (models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND user_id = $2`
	return scanFile(database.Conn(ctx, r.db).QueryRow(ctx, query, fileID, userID))
}

func (r *FileRepository) LockByOwner(ctx context.Context, userID, fileID int64) (models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND user_id = $2 FOR UPDATE`
	return scanFile(database.Conn(ctx, r.db).QueryRow(ctx, query, fileID, userID))
}

func (r *FileRepository) ListByOwner(ctx context.Context, userID int64, limit, offset int) ([]models.File, error) {
	query := `
		SELECT ` + fileColumns + `
		FROM files
		WHERE user_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3
	`
	rows, err := database.Conn(ctx, r.db).Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []models.File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (r *FileRepository) CountByOwner(ctx context.Context, userID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM files WHERE user_id = $1`
	var count int
	if err := database.Conn(ctx, r.db).QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *FileRepository) Update(ctx context.Context, file models.File) error {
	const query = `
		UPDATE files SET name = $3, object_key = $4
		WHERE id = $1 AND user_id = $2
	`
	cmd, err := database.Conn(ctx, r.db).Exec(ctx, query, file.ID, file.UserID, file.Name, file.ObjectKey)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}

// DeleteByOwner removes the row and returns what was deleted.
func (r *FileRepository) DeleteByOwner(ctx context.Context, userID, fileID int64) (models.File, error) {
	query := `DELETE FROM files WHERE id = $1 AND user_id = $2 RETURNING ` + fileColumns
	return scanFile(database.Conn(ctx, r.db).QueryRow(ctx, query, fileID, userID))
}

func scanFile(row pgx.Row) (models.File, error) {
	var file models.File
	if err := row.Scan(
		&file.ID,
		&file.UserID,
		&file.Name,
		&file.ObjectKey,
		&file.UploadedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.File{}, ErrFileNotFound
		}
		return models.File{}, err
	}
	return file, nil
}
