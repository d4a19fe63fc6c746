package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"wallet/internal/amqp"
	"wallet/internal/core"
	"wallet/internal/log"
	"wallet/internal/storage"
	"wallet/internal/storage/memory"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// flakyStore wraps a real store and can be told to fail writes.
type flakyStore struct {
	storage.UserStore
	mu       sync.Mutex
	failPut  bool
	putCalls int
}

func (f *flakyStore) Put(ctx context.Context, u *core.User) error {
	f.mu.Lock()
	f.putCalls++
	fail := f.failPut
	f.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return f.UserStore.Put(ctx, u)
}

func (f *flakyStore) setFailPut(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPut = v
}

func (f *flakyStore) puts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.putCalls
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.LedgerEventMessage
	err  error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, msg *amqp.LedgerEventMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *recordingPublisher) messages() []*amqp.LedgerEventMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*amqp.LedgerEventMessage(nil), p.msgs...)
}

type fixture struct {
	store   *flakyStore
	pub     *recordingPublisher
	auth    *AuthService
	finance *FinanceService
	sess    *Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := &flakyStore{UserStore: memory.New()}
	pub := &recordingPublisher{}
	auth := NewAuthService(store, log.Discard(), WithBcryptCost(bcrypt.MinCost))
	return &fixture{
		store:   store,
		pub:     pub,
		auth:    auth,
		finance: NewFinanceService(auth, store, pub, log.Discard()),
		sess:    NewSession(),
	}
}

// loggedIn registers and logs in a user on the fixture's session.
func (f *fixture) loggedIn(t *testing.T, username string) *fixture {
	t.Helper()
	ctx := context.Background()
	if err := f.auth.Register(ctx, username, "pw1"); err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	if err := f.auth.Login(ctx, f.sess, username, "pw1"); err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
	return f
}
