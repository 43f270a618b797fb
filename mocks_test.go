package todoapi_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"testing"

	"github.com/goliatone/go-repository-bun"
	todoapi "github.com/goliatone/go-todo-api"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// testIdentity implements todoapi.Identity for testing
type testIdentity struct {
	id       string
	username string
	email    string
}

func (t testIdentity) ID() string       { return t.id }
func (t testIdentity) Username() string { return t.username }
func (t testIdentity) Email() string    { return t.email }

// MockIdentityProvider implements todoapi.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (todoapi.Identity, error) {
	args := m.Called(ctx, identifier, password)
	identity, _ := args.Get(0).(todoapi.Identity)
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (todoapi.Identity, error) {
	args := m.Called(ctx, identifier)
	identity, _ := args.Get(0).(todoapi.Identity)
	return identity, args.Error(1)
}

var (
	testKeysOnce sync.Once
	testKeys     *todoapi.KeyPair
	altKeysOnce  sync.Once
	altKeys      *todoapi.KeyPair
)

// testKeyPair returns a process wide RSA pair so each test does not
// pay for key generation.
func testKeyPair(t *testing.T) *todoapi.KeyPair {
	t.Helper()
	testKeysOnce.Do(func() {
		private, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKeys, err = todoapi.NewKeyPair(private, &private.PublicKey)
		if err != nil {
			panic(err)
		}
	})
	require.NotNil(t, testKeys)
	return testKeys
}

// altKeyPair is a second pair for wrong-key signature tests
func altKeyPair(t *testing.T) *todoapi.KeyPair {
	t.Helper()
	altKeysOnce.Do(func() {
		private, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		altKeys, err = todoapi.NewKeyPair(private, &private.PublicKey)
		if err != nil {
			panic(err)
		}
	})
	require.NotNil(t, altKeys)
	return altKeys
}

var (
	testHashOnce sync.Once
	testHash     string
)

const testPassword = "sup3r-secret-pw"

// testPasswordHash hashes testPassword once for the whole package,
// bcrypt at the production cost factor is too slow to repeat per test.
func testPasswordHash(t *testing.T) string {
	t.Helper()
	testHashOnce.Do(func() {
		hash, err := todoapi.HashPassword(testPassword)
		if err != nil {
			panic(err)
		}
		testHash = hash
	})
	require.NotEmpty(t, testHash)
	return testHash
}

// fakeUserStore is an in-memory todoapi.UserStore
type fakeUserStore struct {
	mu               sync.Mutex
	users            map[string]*todoapi.User
	attemptedCalls   int
	successfulCalls  int
	trackAttemptErr  error
	trackSucceedErr  error
	getByIdentifier  error
	lastTrackedLogin *todoapi.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*todoapi.User{}}
}

func (f *fakeUserStore) add(user *todoapi.User) *todoapi.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	f.users[user.ID.String()] = user
	return user
}

func (f *fakeUserStore) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*todoapi.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByIdentifier != nil {
		return nil, f.getByIdentifier
	}

	if user, ok := f.users[identifier]; ok {
		return user, nil
	}

	for _, user := range f.users {
		if user.Email == identifier || user.Username == identifier {
			return user, nil
		}
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{"identifier": identifier})
}

func (f *fakeUserStore) Register(ctx context.Context, user *todoapi.User) (*todoapi.User, error) {
	return f.add(user), nil
}

func (f *fakeUserStore) TrackAttemptedLogin(ctx context.Context, user *todoapi.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trackAttemptErr != nil {
		return f.trackAttemptErr
	}
	f.attemptedCalls++
	f.lastTrackedLogin = user
	user.LoginAttempts++
	return nil
}

func (f *fakeUserStore) TrackSuccessfulLogin(ctx context.Context, user *todoapi.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trackSucceedErr != nil {
		return f.trackSucceedErr
	}
	f.successfulCalls++
	user.LoginAttempts = 0
	user.LoginAttemptAt = nil
	return nil
}

// fakeTodoStore is an in-memory todoapi.TodoStore
type fakeTodoStore struct {
	mu    sync.Mutex
	todos map[uuid.UUID]*todoapi.Todo
	err   error
}

func newFakeTodoStore() *fakeTodoStore {
	return &fakeTodoStore{todos: map[uuid.UUID]*todoapi.Todo{}}
}

func (f *fakeTodoStore) add(todo *todoapi.Todo) *todoapi.Todo {
	f.mu.Lock()
	defer f.mu.Unlock()
	if todo.ID == uuid.Nil {
		todo.ID = uuid.New()
	}
	if todo.Priority == "" {
		todo.Priority = todoapi.PriorityMedium
	}
	f.todos[todo.ID] = todo
	return todo
}

func (f *fakeTodoStore) Create(ctx context.Context, record *todoapi.Todo) (*todoapi.Todo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.add(record), nil
}

func (f *fakeTodoStore) GetByID(ctx context.Context, id uuid.UUID) (*todoapi.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if todo, ok := f.todos[id]; ok {
		return todo, nil
	}
	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{"id": id.String()})
}

func (f *fakeTodoStore) ListByOwner(ctx context.Context, ownerID uuid.UUID, filter todoapi.TodoFilter) ([]*todoapi.Todo, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, 0, f.err
	}

	matches := []*todoapi.Todo{}
	for _, todo := range f.todos {
		if todo.UserID != ownerID {
			continue
		}
		if filter.Completed != nil && todo.Completed != *filter.Completed {
			continue
		}
		matches = append(matches, todo)
	}

	total := len(matches)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 {
		size = 10
	}

	start := (page - 1) * size
	if start >= len(matches) {
		return []*todoapi.Todo{}, total, nil
	}
	end := start + size
	if end > len(matches) {
		end = len(matches)
	}

	return matches[start:end], total, nil
}

func (f *fakeTodoStore) Update(ctx context.Context, record *todoapi.Todo) (*todoapi.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.todos[record.ID]; !ok {
		return nil, repository.NewRecordNotFound()
	}
	f.todos[record.ID] = record
	return record, nil
}

func (f *fakeTodoStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.todos[id]; !ok {
		return repository.NewRecordNotFound()
	}
	delete(f.todos, id)
	return nil
}
