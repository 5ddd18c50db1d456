package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quillpost/apiserver/internal/storage"
	"github.com/quillpost/apiserver/internal/store"
	"github.com/quillpost/apiserver/types"
)

// memStore is an in-memory stand-in for the Postgres repositories.
type memStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]types.User
	contents []types.Content
	saveErr  error
}

func newMemStore() *memStore {
	return &memStore{users: make(map[uuid.UUID]types.User)}
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memStore) Create(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *memStore) UpdateProfile(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	stored.Name = user.Name
	stored.Bio = user.Bio
	stored.ProfileImageURL = user.ProfileImageURL
	m.users[user.ID] = stored
	return stored, nil
}

func (m *memStore) SaveGeneration(_ context.Context, content types.Content, record func(*types.ContentStats)) (types.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return types.Content{}, m.saveErr
	}
	user, ok := m.users[content.UserID]
	if !ok {
		return types.Content{}, store.ErrNotFound
	}
	m.contents = append(m.contents, content)
	record(&user.ContentStats)
	m.users[user.ID] = user
	return content, nil
}

func (m *memStore) ListByUser(_ context.Context, userID uuid.UUID) ([]types.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Content
	for _, c := range m.contents {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) DeleteByIDAndUser(_ context.Context, id, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.contents {
		if c.ID == id && c.UserID == userID {
			m.contents = append(m.contents[:i], m.contents[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) DeleteAllByUser(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		ids  []uuid.UUID
		kept []types.Content
	)
	for _, c := range m.contents {
		if c.UserID == userID {
			ids = append(ids, c.ID)
			continue
		}
		kept = append(kept, c)
	}
	m.contents = kept
	return ids, nil
}

func (m *memStore) addUser(email string) types.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := types.User{ID: uuid.New(), Name: "Test", Email: email}
	m.users[user.ID] = user
	return user
}

// fakeLLM returns a canned completion and records the prompts it saw.
type fakeLLM struct {
	mu      sync.Mutex
	text    string
	err     error
	prompts []string
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type publishedEvent struct {
	channel string
	data    []byte
	attrs   map[string]string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.events = append(f.events, publishedEvent{channel: channel, data: data, attrs: attrs})
	return uuid.NewString(), nil
}

// memObjects is an in-memory ObjectStore.
type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemObjects() *memObjects {
	return &memObjects{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *memObjects) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memObjects) Get(_ context.Context, key string) (*storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return &storage.Object{
		Body:        io.NopCloser(bytes.NewReader(data)),
		ContentType: m.types[key],
		Size:        int64(len(data)),
	}, nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return errors.New("missing object")
	}
	delete(m.objects, key)
	delete(m.types, key)
	return nil
}

// tickingClock returns strictly increasing timestamps.
func tickingClock() func() time.Time {
	var (
		mu  sync.Mutex
		now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}
