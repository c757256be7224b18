package service

import (
	"context"
	"io"
	"time"

	"filevault/internal/models"
	"filevault/internal/storage"
)

type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
	LockByID(ctx context.Context, id int64) (models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash []byte) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	AdjustUploadedCount(ctx context.Context, id int64, delta int) (int, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	Count(ctx context.Context) (int, error)
}

type FileStore interface {
	Create(ctx context.Context, file *models.File) error
	GetByOwner(ctx context.Context, userID, fileID int64) (models.File, error)
	LockByOwner(ctx context.Context, userID, fileID int64) (models.File, error)
	ListByOwner(ctx context.Context, userID int64, limit, offset int) ([]models.File, error)
	CountByOwner(ctx context.Context, userID int64) (int, error)
	Update(ctx context.Context, file models.File) error
	DeleteByOwner(ctx context.Context, userID, fileID int64) (models.File, error)
}

type ObjectStore interface {
	Key(userID int64, name string) string
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error)
	Copy(ctx context.Context, srcKey, dstKey string) error
	Remove(ctx context.Context, key string) error
}

// Page is one page of a numbered listing.
type Page[T any] struct {
	Items    []T
	Count    int
	Number   int
	PageSize int
}

func (p Page[T]) HasNext() bool {
	return p.Number*p.PageSize < p.Count
}

func (p Page[T]) HasPrevious() bool {
	return p.Number > 1
}

func pageOffset(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	return page, (page - 1) * size
}
