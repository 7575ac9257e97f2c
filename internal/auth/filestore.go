package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileStore persists users to a single JSON file, guarded by a mutex and
// flushed with write-temp-then-rename so a crash mid-write never
// corrupts the file. See DESIGN.md for why this is a plain JSON file
// rather than a pack database dependency.
type FileStore struct {
	mu    sync.RWMutex
	path  string
	users map[string]*User // keyed by username
}

func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, users: make(map[string]*User)}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *FileStore) load() error {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var users []*User
	if err := json.Unmarshal(data, &users); err != nil {
		return fmt.Errorf("auth: loading %s: %w", fs.path, err)
	}

	for _, u := range users {
		fs.users[u.Username] = u
	}
	return nil
}

// flushLocked assumes fs.mu is held for writing.
func (fs *FileStore) flushLocked() error {
	users := make([]*User, 0, len(fs.users))
	for _, u := range fs.users {
		users = append(users, u)
	}

	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(fs.path)
	tmp, err := os.CreateTemp(dir, ".users-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, fs.path)
}

func (fs *FileStore) CreateUser(username, passwordHash string) (*User, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, exists := fs.users[username]; exists {
		return nil, ErrUsernameTaken
	}

	u := &User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	fs.users[username] = u

	if err := fs.flushLocked(); err != nil {
		delete(fs.users, username)
		return nil, err
	}

	return u, nil
}

func (fs *FileStore) UserByUsername(username string) (*User, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	u, ok := fs.users[username]
	return u, ok
}

func (fs *FileStore) UserByID(id string) (*User, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	for _, u := range fs.users {
		if u.ID == id {
			return u, true
		}
	}
	return nil, false
}

func (fs *FileStore) IncrementWins(username string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	u, ok := fs.users[username]
	if !ok {
		return ErrNotFound
	}
	u.Wins++

	return fs.flushLocked()
}

func (fs *FileStore) Top(n int) []*User {
	fs.mu.RLock()
	users := make([]*User, 0, len(fs.users))
	for _, u := range fs.users {
		users = append(users, u)
	}
	fs.mu.RUnlock()

	SortLeaders(users)
	if len(users) > n {
		users = users[:n]
	}
	return users
}
