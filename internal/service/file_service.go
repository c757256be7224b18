package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"filevault/internal/apperr"
	"filevault/internal/config"
	"filevault/internal/media/sniffer"
	"filevault/internal/models"
	"filevault/internal/repository"
	"filevault/internal/storage"
)

const (
	msgNoFiles       = "No files uploaded."
	msgNotFound      = "Not found."
	msgObjectMissing = "File does not exist"
)

// UploadFile is one incoming file. Open is called once, inside the upload
// transaction.
type UploadFile struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

type UpdateInput struct {
	Name    string
	Content *UploadFile
}

// Download is an open handle on a stored file. Callers must close Content.
type Download struct {
	File        models.File
	Content     io.ReadCloser
	Size        int64
	ContentType string
}

type FileService struct {
	tx       TxManager
	users    UserStore
	files    FileStore
	objects  ObjectStore
	maxFiles int
	pageSize int
	log      zerolog.Logger
}

func NewFileService(tx TxManager, users UserStore, files FileStore, objects ObjectStore, cfg *config.AppConfig, log zerolog.Logger) *FileService {
	return &FileService{
		tx:       tx,
		users:    users,
		files:    files,
		objects:  objects,
		maxFiles: cfg.Quota.MaxFilesPerUser,
		pageSize: cfg.Quota.PageSize,
		log:      log,
	}
}

// Upload stores the whole batch or nothing. The user row stays locked for the
// duration, so concurrent batches from one user are checked against the quota
// one at a time.
func (s *FileService) Upload(ctx context.Context, userID int64, uploads []UploadFile) ([]models.File, error) {
	if len(uploads) == 0 {
		return nil, apperr.FieldValidation("file", msgNoFiles)
	}

	var (
		written []string
		created []models.File
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.users.LockByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}

		remaining := user.RemainingSlots(s.maxFiles)
		if len(uploads) > remaining {
			return apperr.Quota(fmt.Sprintf("You can only upload a maximum of %d more files.", remaining))
		}

		for _, upload := range uploads {
			key := s.objects.Key(userID, upload.Name)
			if err := s.putUpload(ctx, key, upload); err != nil {
				return err
			}
			written = append(written, key)

			file := models.File{UserID: userID, Name: upload.Name, ObjectKey: key}
			if err := s.files.Create(ctx, &file); err != nil {
				return fmt.Errorf("save file record: %w", err)
			}
			created = append(created, file)
		}

		if _, err := s.users.AdjustUploadedCount(ctx, userID, len(uploads)); err != nil {
			return fmt.Errorf("increment upload count: %w", err)
		}
		return nil
	})
	if err != nil {
		s.discard(ctx, written)
		return nil, err
	}

	s.log.Info().Int64("user_id", userID).Int("count", len(created)).Msg("files uploaded")
	return created, nil
}

func (s *FileService) putUpload(ctx context.Context, key string, upload UploadFile) error {
	rc, err := upload.Open()
	if err != nil {
		return fmt.Errorf("open upload %q: %w", upload.Name, err)
	}
	defer rc.Close()

	contentType, body, err := sniffer.Detect(upload.Name, rc)
	if err != nil {
		return fmt.Errorf("read upload %q: %w", upload.Name, err)
	}
	return s.objects.Put(ctx, key, body, upload.Size, contentType)
}

// List returns one page of the user's files in upload order. A page past the
// end is empty rather than an error.
func (s *FileService) List(ctx context.Context, userID int64, page int) (Page[models.File], error) {
	page, offset := pageOffset(page, s.pageSize)
	result := Page[models.File]{Number: page, PageSize: s.pageSize}

	count, err := s.files.CountByOwner(ctx, userID)
	if err != nil {
		return result, fmt.Errorf("count files: %w", err)
	}
	result.Count = count
	if offset >= count {
		return result, nil
	}

	files, err := s.files.ListByOwner(ctx, userID, s.pageSize, offset)
	if err != nil {
		return result, fmt.Errorf("list files: %w", err)
	}
	result.Items = files
	return result, nil
}

func (s *FileService) Fetch(ctx context.Context, userID, fileID int64) (Download, error) {
	file, err := s.files.GetByOwner(ctx, userID, fileID)
	if err != nil {
		return Download{}, notFound(err)
	}

	content, info, err := s.objects.Get(ctx, file.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.log.Warn().Int64("file_id", file.ID).Str("object_key", file.ObjectKey).Msg("file record without object")
			return Download{}, apperr.NotFound(msgObjectMissing)
		}
		return Download{}, fmt.Errorf("open object: %w", err)
	}

	return Download{
		File:        file,
		Content:     content,
		Size:        info.Size,
		ContentType: sniffer.ByName(file.Name),
	}, nil
}

// Update renames and/or replaces a file. New bytes always land under a fresh
// key and the previous object is removed only after the record commits, so
// the record never points at a missing object.
func (s *FileService) Update(ctx context.Context, userID, fileID int64, input UpdateInput) (models.File, error) {
	var (
		staged   []string
		obsolete string
		updated  models.File
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		file, err := s.files.LockByOwner(ctx, userID, fileID)
		if err != nil {
			return notFound(err)
		}
		previous := file.ObjectKey

		renamed := input.Name != "" && input.Name != file.Name
		if renamed {
			file.Name = input.Name
		}

		switch {
		case input.Content != nil:
			key := s.objects.Key(userID, file.Name)
			if err := s.putUpload(ctx, key, *input.Content); err != nil {
				return err
			}
			staged = append(staged, key)
			file.ObjectKey = key
		case renamed:
			key := s.objects.Key(userID, file.Name)
			if err := s.objects.Copy(ctx, previous, key); err != nil {
				if errors.Is(err, storage.ErrObjectNotFound) {
					return apperr.NotFound(msgObjectMissing)
				}
				return fmt.Errorf("copy object: %w", err)
			}
			staged = append(staged, key)
			file.ObjectKey = key
		}

		if file.ObjectKey != previous {
			obsolete = previous
		}
		if err := s.files.Update(ctx, file); err != nil {
			return notFound(err)
		}
		updated = file
		return nil
	})
	if err != nil {
		s.discard(ctx, staged)
		return models.File{}, err
	}

	if obsolete != "" {
		if err := s.objects.Remove(ctx, obsolete); err != nil {
			s.log.Warn().Err(err).Str("object_key", obsolete).Msg("remove replaced object failed")
		}
	}
	return updated, nil
}

// Delete removes the record and decrements the counter in one transaction,
// then removes the object. The object outlives a failed commit, so the record
// never points at missing bytes; a failed removal leaves an orphan that is
// only logged.
func (s *FileService) Delete(ctx context.Context, userID, fileID int64) error {
	var removed models.File
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		file, err := s.files.DeleteByOwner(ctx, userID, fileID)
		if err != nil {
			return notFound(err)
		}
		if _, err := s.users.AdjustUploadedCount(ctx, userID, -1); err != nil {
			return fmt.Errorf("decrement upload count: %w", err)
		}
		removed = file
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.objects.Remove(context.WithoutCancel(ctx), removed.ObjectKey); err != nil {
		s.log.Error().Err(err).Int64("file_id", fileID).Str("object_key", removed.ObjectKey).Msg("orphaned object after delete")
	}
	return nil
}

func (s *FileService) discard(ctx context.Context, keys []string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := s.objects.Remove(ctx, key); err != nil {
			s.log.Error().Err(err).Str("object_key", key).Msg("orphaned object after failed write")
		}
	}
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrFileNotFound) {
		return apperr.NotFound(msgNotFound)
	}
	return err
}
