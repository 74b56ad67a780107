package session

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRedisStore(rdb, "test"), mr
}

func testSession(id, userID string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		UserID:    userID,
		Email:     userID + "@example.com",
		Role:      "CLIENT",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestRedisStoreSaveGet(t *testing.T) {
	store, mr := newRedisStoreTest(t)
	ctx := context.Background()

	if err := store.Save(ctx, testSession("sid-1", "u-1")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get(ctx, "sid-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != "u-1" || got.Role != "CLIENT" {
		t.Fatalf("unexpected session: %+v", got)
	}

	ttl := mr.TTL("test:sid-1")
	if ttl <= 59*time.Minute || ttl > time.Hour {
		t.Fatalf("expected ttl close to 1h, got %v", ttl)
	}
}

func TestRedisStoreExpiresWithTTL(t *testing.T) {
	store, mr := newRedisStoreTest(t)
	ctx := context.Background()

	if err := store.Save(ctx, testSession("sid-1", "u-1")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	mr.FastForward(2 * time.Hour)

	if _, err := store.Get(ctx, "sid-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after ttl, got %v", err)
	}
}

func TestRedisStoreRejectsExpiredSave(t *testing.T) {
	store, _ := newRedisStoreTest(t)
	sess := testSession("sid-1", "u-1")
	sess.ExpiresAt = time.Now().Add(-time.Second)

	if err := store.Save(context.Background(), sess); err == nil {
		t.Fatal("expected error saving an expired session")
	}
}

func TestRedisStoreDeleteIdempotent(t *testing.T) {
	store, mr := newRedisStoreTest(t)
	ctx := context.Background()

	if err := store.Save(ctx, testSession("sid-1", "u-1")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, "sid-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, "sid-1"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, err := store.Get(ctx, "sid-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if mr.Exists("test:user:u-1") {
		members, _ := mr.Members("test:user:u-1")
		if len(members) != 0 {
			t.Fatalf("expected user index to be emptied, got %v", members)
		}
	}
}

func TestRedisStoreDeleteAllForUser(t *testing.T) {
	store, _ := newRedisStoreTest(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Save(ctx, testSession(id, "u-1")); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if err := store.Save(ctx, testSession("d", "u-2")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	n, err := store.DeleteAllForUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("DeleteAllForUser: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 removed, got %d", n)
	}
	if _, err := store.Get(ctx, "d"); err != nil {
		t.Fatalf("other user's session must survive: %v", err)
	}

	n, err = store.DeleteAllForUser(ctx, "nobody")
	if err != nil || n != 0 {
		t.Fatalf("expected (0, nil) for unknown user, got (%d, %v)", n, err)
	}
}

func TestRedisStoreCorruptBlobIsNotFound(t *testing.T) {
	store, mr := newRedisStoreTest(t)
	if err := mr.Set("test:bad", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := store.Get(context.Background(), "bad"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if mr.Exists("test:bad") {
		t.Fatal("corrupt blob should be dropped")
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	store := NewRedisStore(rdb, "down")
	mr.Close()

	if _, err := store.Get(context.Background(), "x"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := store.Save(context.Background(), testSession("x", "u")); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestRedisManagerEndToEnd(t *testing.T) {
	store, _ := newRedisStoreTest(t)
	m, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ctx := context.Background()

	token, _, err := m.Create(ctx, "u-1", "e", "SUPER_ADMIN")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := m.Lookup(ctx, token)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.Role != "SUPER_ADMIN" {
		t.Fatalf("unexpected role %q", got.Role)
	}
}

type commandLog struct {
	mu    sync.Mutex
	names []string
}

func (l *commandLog) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (l *commandLog) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		l.mu.Lock()
		l.names = append(l.names, cmd.Name())
		l.mu.Unlock()
		return next(ctx, cmd)
	}
}

func (l *commandLog) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		l.mu.Lock()
		for _, cmd := range cmds {
			l.names = append(l.names, cmd.Name())
		}
		l.mu.Unlock()
		return next(ctx, cmds)
	}
}

func (l *commandLog) reset() {
	l.mu.Lock()
	l.names = nil
	l.mu.Unlock()
}

func TestRedisStoreDeleteAllForUserRunsServerSide(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	log := &commandLog{}
	rdb.AddHook(log)
	store := NewRedisStore(rdb, "test")
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := store.Save(ctx, testSession(id, "u-1")); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	// an index entry whose session already expired is cleaned but not counted
	if err := rdb.SAdd(ctx, "test:user:u-1", "gone").Err(); err != nil {
		t.Fatalf("SAdd: %v", err)
	}

	log.reset()
	n, err := store.DeleteAllForUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("DeleteAllForUser: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 live sessions removed, got %d", n)
	}
	for _, name := range log.names {
		if name != "evalsha" && name != "eval" {
			t.Fatalf("revocation must be a single script call, saw %v", log.names)
		}
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Fatalf("keys left after revoke: %v", keys)
	}
}
