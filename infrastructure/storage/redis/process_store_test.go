package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/goap/domain/process"
	"github.com/felixgeelhaar/goap/infrastructure/storage/storetest"
)

func setupTestStore(t *testing.T, ttl time.Duration) (*ProcessStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewProcessStoreFromClient(client, "test:", ttl), mr
}

func TestProcessStore(t *testing.T) {
	t.Parallel()
	storetest.ProcessStore(t, func(t *testing.T) process.Store {
		s, _ := setupTestStore(t, 0)
		return s
	})
}

func TestProcessStore_Keys(t *testing.T) {
	t.Parallel()

	s, mr := setupTestStore(t, 0)
	ctx := context.Background()
	p := storetest.NewProcess("proc-1", "shipped", time.Now(), process.StatusRunning)
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if !mr.Exists("test:process:proc-1") {
		t.Error("expected record key test:process:proc-1")
	}
	members, err := mr.ZMembers("test:processes")
	if err != nil {
		t.Fatalf("ZMembers() error = %v", err)
	}
	if len(members) != 1 || members[0] != "proc-1" {
		t.Errorf("index members = %v, want [proc-1]", members)
	}

	if err := s.Delete(ctx, "proc-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if mr.Exists("test:processes") {
		t.Error("index should be empty after Delete")
	}
}

func TestProcessStore_TTL(t *testing.T) {
	t.Parallel()

	s, mr := setupTestStore(t, time.Minute)
	ctx := context.Background()
	p := storetest.NewProcess("proc-1", "shipped", time.Now(), process.StatusCompleted)
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if ttl := mr.TTL("test:process:proc-1"); ttl != time.Minute {
		t.Errorf("TTL = %v, want 1m", ttl)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := s.Get(ctx, "proc-1"); !errors.Is(err, process.ErrProcessNotFound) {
		t.Errorf("Get() after expiry error = %v, want ErrProcessNotFound", err)
	}
	n, err := s.Count(ctx, process.ListFilter{})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count() after expiry = %d, want 0", n)
	}
	if mr.Exists("test:processes") {
		t.Error("expired member should be pruned from the index")
	}
}

func TestProcessStore_ConnectionFailure(t *testing.T) {
	t.Parallel()

	s, mr := setupTestStore(t, 0)
	mr.Close()

	_, err := s.Get(context.Background(), "proc-1")
	if !errors.Is(err, process.ErrConnectionFailed) {
		t.Errorf("Get() error = %v, want ErrConnectionFailed", err)
	}
}

func TestNewProcessStore(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	s, err := NewProcessStore(DefaultConfig(), WithURL(mr.Addr()), WithKeyPrefix("goap-test:"), WithTTL(time.Hour))
	if err != nil {
		t.Fatalf("NewProcessStore() error = %v", err)
	}
	defer s.Close()

	if s.keyPrefix != "goap-test:" || s.ttl != time.Hour {
		t.Errorf("store = %q/%v, want goap-test:/1h", s.keyPrefix, s.ttl)
	}

	cfg := DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond
	WithURL("127.0.0.1:1")(&cfg)
	if _, err := NewProcessStore(cfg); !errors.Is(err, process.ErrConnectionFailed) {
		t.Errorf("NewProcessStore() error = %v, want ErrConnectionFailed", err)
	}
}

func TestNewProcessStore_URLCredentials(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	mr.RequireAuth("secret")

	if _, err := NewProcessStore(DefaultConfig(), WithURL("redis://"+mr.Addr())); !errors.Is(err, process.ErrConnectionFailed) {
		t.Fatalf("NewProcessStore() without password error = %v, want ErrConnectionFailed", err)
	}

	s, err := NewProcessStore(DefaultConfig(), WithURL("redis://:secret@"+mr.Addr()+"/3"))
	if err != nil {
		t.Fatalf("NewProcessStore() error = %v", err)
	}
	defer s.Close()

	p := storetest.NewProcess("proc-db", "shipped", time.Now(), process.StatusRunning)
	if err := s.Save(context.Background(), p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !mr.DB(3).Exists("goap:process:proc-db") {
		t.Error("record not written to database 3")
	}
	if mr.DB(0).Exists("goap:process:proc-db") {
		t.Error("record written to database 0")
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      Config
		addr     string
		password string
		db       int
		pool     int
		wantErr  bool
	}{
		{"bare address", Config{URL: "cache:6379"}, "cache:6379", "", 0, 0, false},
		{"url with credentials", Config{URL: "redis://user:pw@cache:6380/2"}, "cache:6380", "pw", 2, 0, false},
		{"pool size", Config{URL: "cache:6379", PoolSize: 7}, "cache:6379", "", 0, 7, false},
		{"bad scheme", Config{URL: "http://cache:6379"}, "", "", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts, err := Options(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Options() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if opts.Addr != tt.addr || opts.Password != tt.password || opts.DB != tt.db {
				t.Errorf("Options() = %s/%q/%d, want %s/%q/%d", opts.Addr, opts.Password, opts.DB, tt.addr, tt.password, tt.db)
			}
			if tt.pool > 0 && opts.PoolSize != tt.pool {
				t.Errorf("PoolSize = %d, want %d", opts.PoolSize, tt.pool)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.URL != "localhost:6379" {
		t.Errorf("URL = %s, want localhost:6379", cfg.URL)
	}
	if cfg.KeyPrefix != "goap:" {
		t.Errorf("KeyPrefix = %s, want goap:", cfg.KeyPrefix)
	}
	if cfg.TTL != 0 {
		t.Errorf("TTL = %v, want 0", cfg.TTL)
	}
}
