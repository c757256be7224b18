package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"filevault/internal/mail"
	"filevault/internal/models"
	"filevault/internal/repository"
	"filevault/internal/storage"
)

// memDB backs the fake user and file stores. fakeTx snapshots it so a failed
// transaction leaves no trace, the way a rollback would.
type memDB struct {
	mu         sync.Mutex
	users      map[int64]models.User
	files      map[int64]models.File
	nextUserID int64
	nextFileID int64
}

func newMemDB() *memDB {
	return &memDB{users: map[int64]models.User{}, files: map[int64]models.File{}}
}

func (db *memDB) snapshot() (map[int64]models.User, map[int64]models.File) {
	db.mu.Lock()
	defer db.mu.Unlock()
	users := make(map[int64]models.User, len(db.users))
	for k, v := range db.users {
		users[k] = v
	}
	files := make(map[int64]models.File, len(db.files))
	for k, v := range db.files {
		files[k] = v
	}
	return users, files
}

func (db *memDB) restore(users map[int64]models.User, files map[int64]models.File) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users = users
	db.files = files
}

type fakeTx struct {
	db        *memDB
	commits   int
	rollback  int
	commitErr error
}

func (t *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	users, files := t.db.snapshot()
	if err := fn(ctx); err != nil {
		t.db.restore(users, files)
		t.rollback++
		return err
	}
	if t.commitErr != nil {
		t.db.restore(users, files)
		t.rollback++
		return fmt.Errorf("commit tx: %w", t.commitErr)
	}
	t.commits++
	return nil
}

type fakeUsers struct {
	db *memDB
}

func (f *fakeUsers) Create(_ context.Context, user *models.User) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, u := range f.db.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrEmailTaken
		}
	}
	f.db.nextUserID++
	user.ID = f.db.nextUserID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	f.db.users[user.ID] = *user
	return nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, u := range f.db.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (models.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u, ok := f.db.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) LockByID(ctx context.Context, id int64) (models.User, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id int64, hash []byte) error {
	return f.mutate(id, func(u *models.User) { u.PasswordHash = hash })
}

func (f *fakeUsers) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	return f.mutate(id, func(u *models.User) { u.LastLogin = &at })
}

func (f *fakeUsers) AdjustUploadedCount(_ context.Context, id int64, delta int) (int, error) {
	var count int
	err := f.mutate(id, func(u *models.User) {
		u.NoOfFilesUploaded = max(u.NoOfFilesUploaded+delta, 0)
		count = u.NoOfFilesUploaded
	})
	return count, err
}

func (f *fakeUsers) List(_ context.Context, limit, offset int) ([]models.User, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	users := make([]models.User, 0, len(f.db.users))
	for _, u := range f.db.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return window(users, limit, offset), nil
}

func (f *fakeUsers) Count(_ context.Context) (int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return len(f.db.users), nil
}

func (f *fakeUsers) mutate(id int64, fn func(u *models.User)) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	u, ok := f.db.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	fn(&u)
	f.db.users[id] = u
	return nil
}

type fakeFiles struct {
	db *memDB
}

func (f *fakeFiles) Create(_ context.Context, file *models.File) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.nextFileID++
	file.ID = f.db.nextFileID
	file.UploadedAt = time.Now()
	f.db.files[file.ID] = *file
	return nil
}

func (f *fakeFiles) GetByOwner(_ context.Context, userID, fileID int64) (models.File, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	file, ok := f.db.files[fileID]
	if !ok || file.UserID != userID {
		return models.File{}, repository.ErrFileNotFound
	}
	return file, nil
}

func (f *fakeFiles) LockByOwner(ctx context.Context, userID, fileID int64) (models.File, error) {
	return f.GetByOwner(ctx, userID, fileID)
}

func (f *fakeFiles) ListByOwner(_ context.Context, userID int64, limit, offset int) ([]models.File, error) {
	return window(f.owned(userID), limit, offset), nil
}

func (f *fakeFiles) CountByOwner(_ context.Context, userID int64) (int, error) {
	return len(f.owned(userID)), nil
}

func (f *fakeFiles) Update(_ context.Context, file models.File) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	existing, ok := f.db.files[file.ID]
	if !ok || existing.UserID != file.UserID {
		return repository.ErrFileNotFound
	}
	f.db.files[file.ID] = file
	return nil
}

func (f *fakeFiles) DeleteByOwner(_ context.Context, userID, fileID int64) (models.File, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	file, ok := f.db.files[fileID]
	if !ok || file.UserID != userID {
		return models.File{}, repository.ErrFileNotFound
	}
	delete(f.db.files, fileID)
	return file, nil
}

func (f *fakeFiles) owned(userID int64) []models.File {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	var files []models.File
	for _, file := range f.db.files {
		if file.UserID == userID {
			files = append(files, file)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ID < files[j].ID })
	return files
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}

type storedObject struct {
	data        []byte
	contentType string
}

type fakeObjects struct {
	mu        sync.Mutex
	objects   map[string]storedObject
	seq       int
	puts      int
	failPutAt int
	copyErr   error
	removeErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string]storedObject{}}
}

func (f *fakeObjects) Key(userID int64, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return fmt.Sprintf("uploads/%d/%d/%s", userID, f.seq, name)
}

func (f *fakeObjects) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.failPutAt > 0 && f.puts == f.failPutAt {
		return errors.New("storage unavailable")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = storedObject{data: data, contentType: contentType}
	return nil
}

func (f *fakeObjects) Get(_ context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	if !ok {
		return nil, storage.ObjectInfo{}, fmt.Errorf("%s: %w", key, storage.ErrObjectNotFound)
	}
	return io.NopCloser(strings.NewReader(string(obj.data))), storage.ObjectInfo{
		Key: key, Size: int64(len(obj.data)), ContentType: obj.contentType,
	}, nil
}

func (f *fakeObjects) Copy(_ context.Context, src, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.copyErr != nil {
		return f.copyErr
	}
	obj, ok := f.objects[src]
	if !ok {
		return fmt.Errorf("%s: %w", src, storage.ErrObjectNotFound)
	}
	f.objects[dst] = obj
	return nil
}

func (f *fakeObjects) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeObjects) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

func (f *fakeObjects) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

type recordingMailer struct {
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}
