package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestSetNXOnlySetsOnce(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	ok, err := client.SetNX(ctx, "lock", "a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first SetNX should win: ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, "lock", "b", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("second SetNX should lose while key exists")
	}

	value, err := client.Get(ctx, "lock")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if value != "a" {
		t.Fatalf("expected first writer's value, got %q", value)
	}
}

func TestGetMissingKeyReturnsNil(t *testing.T) {
	client := &Client{store: newMockCmdable()}
	if _, err := client.Get(context.Background(), "absent"); err != Nil {
		t.Fatalf("expected redis.Nil, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.ConversationLockKey("conv-1"); got != "mb:conversation_lock:conv-1" {
		t.Fatalf("unexpected conversation lock key %s", got)
	}
	if got := client.AgentLockKey("conv-1"); got != "mb:agent_lock:conv-1" {
		t.Fatalf("unexpected agent lock key %s", got)
	}
	if got := client.CounterKey("hits"); got != "mb:counter:hits" {
		t.Fatalf("unexpected counter key %s", got)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	if _, err := client.SetNX(context.Background(), "k", "v", 0); err == nil {
		t.Fatalf("expected error for uninitialized store")
	}
}

type mockCmdable struct {
	data    map[string]string
	incr    map[string]int64
	expires map[string]time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data:    map[string]string{},
		incr:    map[string]int64{},
		expires: map[string]time.Duration{},
	}
}

func (m *mockCmdable) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	m.data[key] = toString(value)
	if ttl > 0 {
		m.expires[key] = ttl
	}
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if value, ok := m.data[key]; ok {
		cmd.SetVal(value)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	if _, exists := m.data[key]; exists {
		cmd.SetVal(false)
		return cmd
	}
	m.data[key] = toString(value)
	if ttl > 0 {
		m.expires[key] = ttl
	}
	cmd.SetVal(true)
	return cmd
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.incr[key]++
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(m.incr[key])
	return cmd
}

func (m *mockCmdable) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	if _, ok := m.data[key]; !ok {
		cmd.SetVal(false)
		return cmd
	}
	m.expires[key] = ttl
	cmd.SetVal(true)
	return cmd
}

func (m *mockCmdable) TTL(ctx context.Context, key string) *redis.DurationCmd {
	cmd := redis.NewDurationCmd(ctx, time.Second)
	if ttl, ok := m.expires[key]; ok {
		cmd.SetVal(ttl)
	} else {
		cmd.SetVal(-1)
	}
	return cmd
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			removed++
		}
		delete(m.data, key)
		delete(m.expires, key)
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(removed)
	return cmd
}

func toString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}
