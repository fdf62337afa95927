package registration

import (
	"context"
	"errors"
	"io"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AlibekovAA/registration-board/internal/common/clock"
	commonerrors "github.com/AlibekovAA/registration-board/internal/common/errors"
	"github.com/AlibekovAA/registration-board/internal/common/logger"
	"github.com/AlibekovAA/registration-board/internal/user/changefeed"
	"github.com/AlibekovAA/registration-board/internal/user/connector"
	"github.com/AlibekovAA/registration-board/internal/user/domain"
)

type mockSubscription struct {
	events       chan changefeed.Event
	once         sync.Once
	unsubscribes atomic.Int32
}

func newMockSubscription() *mockSubscription {
	return &mockSubscription{events: make(chan changefeed.Event, 8)}
}

func (s *mockSubscription) Events() <-chan changefeed.Event { return s.events }

func (s *mockSubscription) Unsubscribe() {
	s.unsubscribes.Add(1)
	s.once.Do(func() { close(s.events) })
}

type mockConnector struct {
	mu         sync.Mutex
	listFunc   func(ctx context.Context) ([]domain.User, error)
	createFunc func(ctx context.Context, name, email string) (domain.User, error)
	deleteFunc func(ctx context.Context, id domain.ID) error
	subErr     error
	sub        *mockSubscription

	listCalls   int
	createCalls int
}

func (m *mockConnector) ListUsers(ctx context.Context) ([]domain.User, error) {
	m.mu.Lock()
	m.listCalls++
	fn := m.listFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return nil, nil
}

func (m *mockConnector) CreateUser(ctx context.Context, name, email string) (domain.User, error) {
	m.mu.Lock()
	m.createCalls++
	fn := m.createFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, name, email)
	}
	return domain.User{ID: "new", Name: name, Email: email}, nil
}

func (m *mockConnector) DeleteUser(ctx context.Context, id domain.ID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockConnector) Subscribe(ctx context.Context) (connector.Subscription, error) {
	if m.subErr != nil {
		return nil, m.subErr
	}
	return m.sub, nil
}

func (m *mockConnector) setList(fn func(ctx context.Context) ([]domain.User, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listFunc = fn
}

func (m *mockConnector) calls() (list, create int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls, m.createCalls
}

var (
	baseTime = time.Date(2026, 10, 2, 12, 0, 0, 0, time.UTC)
	ana      = domain.User{ID: "id-1", Name: "Ana", Email: "ana@x.com", CreatedAt: baseTime}
	bia      = domain.User{ID: "id-2", Name: "Bia", Email: "bia@x.com", CreatedAt: baseTime.Add(time.Minute)}
	caio     = domain.User{ID: "id-3", Name: "Caio", Email: "caio@x.com", CreatedAt: baseTime.Add(2 * time.Minute)}
)

func remoteErr(cause error) error {
	return commonerrors.ErrRemoteStore.WithCause(cause)
}

func setupController(t *testing.T) (*Controller, *mockConnector, *clock.MockClock) {
	t.Helper()
	conn := &mockConnector{sub: newMockSubscription()}
	clk := clock.NewMockClock(baseTime.Add(time.Hour))
	c := NewController(ControllerDeps{
		Connector: conn,
		Clock:     clk,
		Log:       logger.NewWriter(io.Discard, "test", "debug"),
	}, ControllerConfig{RefreshTimeout: time.Second, SessionID: "test"})
	t.Cleanup(c.Close)
	return c, conn, clk
}

func mountWith(t *testing.T, users ...domain.User) (*Controller, *mockConnector) {
	t.Helper()
	c, conn, _ := setupController(t)
	conn.setList(func(context.Context) ([]domain.User, error) { return users, nil })
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return c, conn
}

// tick delivers one change event and waits for every refresh it started.
func tick(t *testing.T, c *Controller, conn *mockConnector) {
	t.Helper()
	before, _ := conn.calls()
	conn.sub.events <- changefeed.Event{Table: "users", Op: changefeed.OpInsert}

	deadline := time.Now().Add(time.Second)
	for {
		after, _ := conn.calls()
		if after > before {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for feed refresh")
		}
		time.Sleep(time.Millisecond)
	}
	waitIdle(t, c)
}

func waitIdle(t *testing.T, c *Controller) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for c.Snapshot().List.Loading {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for list to settle")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestController_InitialState(t *testing.T) {
	c, _, _ := setupController(t)

	s := c.Snapshot()
	if s.List.Status != StatusIdle || len(s.List.Users) != 0 || s.List.Loading {
		t.Errorf("expected empty idle list, got %+v", s.List)
	}
	if s.Form != (FormState{}) {
		t.Errorf("expected empty form, got %+v", s.Form)
	}
}

func TestController_Initialize_LoadsList(t *testing.T) {
	c, _, clk := setupController(t)
	conn := c.conn.(*mockConnector)
	conn.setList(func(context.Context) ([]domain.User, error) {
		return []domain.User{bia, ana}, nil
	})

	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	s := c.Snapshot()
	if s.List.Status != StatusLoaded {
		t.Errorf("expected loaded, got %s", s.List.Status)
	}
	if !reflect.DeepEqual(s.List.Users, []domain.User{bia, ana}) {
		t.Errorf("expected [Bia Ana], got %+v", s.List.Users)
	}
	if s.List.Loading {
		t.Error("expected loading flag to be cleared")
	}
	if !s.List.RefreshedAt.Equal(clk.Now()) {
		t.Errorf("expected refresh time %v, got %v", clk.Now(), s.List.RefreshedAt)
	}
}

func TestController_Initialize_FetchFailure(t *testing.T) {
	c, conn, _ := setupController(t)
	conn.setList(func(context.Context) ([]domain.User, error) {
		return nil, remoteErr(errors.New("connection refused"))
	})

	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("expected remote failure to stay in state, got %v", err)
	}

	s := c.Snapshot()
	if s.List.Status != StatusFailed {
		t.Errorf("expected failed, got %s", s.List.Status)
	}
	if s.List.Error == "" {
		t.Error("expected list error to be set")
	}
	if len(s.List.Users) != 0 {
		t.Errorf("expected list to stay empty, got %+v", s.List.Users)
	}
}

func TestController_Initialize_OnlyOnce(t *testing.T) {
	c, conn := mountWith(t, ana)

	if err := c.Initialize(context.Background()); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("expected ErrAlreadyInitialized, got %v", err)
	}
	if list, _ := conn.calls(); list != 1 {
		t.Errorf("expected a single fetch, got %d", list)
	}
}

func TestController_Initialize_AfterClose(t *testing.T) {
	c, conn, _ := setupController(t)
	c.Close()

	if err := c.Initialize(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if list, _ := conn.calls(); list != 0 {
		t.Errorf("expected no fetch after close, got %d", list)
	}
}

func TestController_Initialize_SubscribeFailureStillFetches(t *testing.T) {
	c, conn, _ := setupController(t)
	conn.subErr = remoteErr(commonerrors.ErrSubscribeFailed.WithCause(commonerrors.ErrFeedClosed))
	conn.setList(func(context.Context) ([]domain.User, error) { return []domain.User{ana}, nil })

	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	s := c.Snapshot()
	if s.List.Status != StatusLoaded || len(s.List.Users) != 1 {
		t.Errorf("expected list to load, got %+v", s.List)
	}
	if s.List.Error != "change feed is closed" {
		t.Errorf("expected subscription error in list slot, got %q", s.List.Error)
	}
}

func TestController_FeedEventReplacesListWholesale(t *testing.T) {
	c, conn := mountWith(t, bia, ana)

	conn.setList(func(context.Context) ([]domain.User, error) {
		return []domain.User{caio}, nil
	})
	tick(t, c, conn)

	s := c.Snapshot()
	if !reflect.DeepEqual(s.List.Users, []domain.User{caio}) {
		t.Errorf("expected list to be replaced with [Caio], got %+v", s.List.Users)
	}
	if s.List.Status != StatusLoaded {
		t.Errorf("expected loaded, got %s", s.List.Status)
	}
}

func TestController_FeedFailureKeepsRefreshStamp(t *testing.T) {
	c, conn, clk := setupController(t)
	conn.setList(func(context.Context) ([]domain.User, error) { return []domain.User{ana}, nil })
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	mounted := clk.Now()

	clk.Advance(time.Minute)
	tick(t, c, conn)
	if got := c.Snapshot().List.RefreshedAt; !got.Equal(mounted.Add(time.Minute)) {
		t.Errorf("expected refresh stamp to move with the clock, got %v", got)
	}

	clk.Advance(time.Minute)
	conn.setList(func(context.Context) ([]domain.User, error) {
		return nil, remoteErr(errors.New("timeout"))
	})
	tick(t, c, conn)
	if got := c.Snapshot().List.RefreshedAt; !got.Equal(mounted.Add(time.Minute)) {
		t.Errorf("expected failed refresh to keep the last good stamp, got %v", got)
	}
}

func TestController_FeedFailureKeepsStaleList(t *testing.T) {
	c, conn := mountWith(t, bia, ana)

	conn.setList(func(context.Context) ([]domain.User, error) {
		return nil, remoteErr(errors.New("timeout"))
	})
	tick(t, c, conn)

	s := c.Snapshot()
	if s.List.Status != StatusFailed {
		t.Errorf("expected failed, got %s", s.List.Status)
	}
	if !reflect.DeepEqual(s.List.Users, []domain.User{bia, ana}) {
		t.Errorf("expected stale list to be kept, got %+v", s.List.Users)
	}
	if s.List.Error != "remote store request failed" {
		t.Errorf("unexpected error message %q", s.List.Error)
	}
}

func TestController_EveryEventStartsAFetch(t *testing.T) {
	c, conn := mountWith(t, ana)

	tick(t, c, conn)
	tick(t, c, conn)
	tick(t, c, conn)

	if list, _ := conn.calls(); list != 4 {
		t.Errorf("expected mount fetch plus one per event, got %d", list)
	}
}

func TestController_Submit_ClearsForm(t *testing.T) {
	c, conn := mountWith(t)
	var gotName, gotEmail string
	conn.createFunc = func(ctx context.Context, name, email string) (domain.User, error) {
		gotName, gotEmail = name, email
		return ana, nil
	}
	_ = c.UpdateDraft("  Ana ", " ana@x.com ")

	if err := c.Submit(context.Background(), "  Ana ", " ana@x.com "); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if gotName != "Ana" || gotEmail != "ana@x.com" {
		t.Errorf("expected trimmed values to be sent, got %q %q", gotName, gotEmail)
	}
	s := c.Snapshot()
	if s.Form != (FormState{}) {
		t.Errorf("expected empty form, got %+v", s.Form)
	}
	if len(s.List.Users) != 0 {
		t.Errorf("expected list not to change before a feed event, got %+v", s.List.Users)
	}
}

func TestController_Submit_RowAppearsOnNextTick(t *testing.T) {
	c, conn := mountWith(t, bia)

	if err := c.Submit(context.Background(), "Ana", "ana@x.com"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := c.Snapshot().List.Users; !reflect.DeepEqual(got, []domain.User{bia}) {
		t.Fatalf("expected list unchanged after submit, got %+v", got)
	}

	conn.setList(func(context.Context) ([]domain.User, error) {
		return []domain.User{ana, bia}, nil
	})
	tick(t, c, conn)

	if got := c.Snapshot().List.Users; !reflect.DeepEqual(got, []domain.User{ana, bia}) {
		t.Errorf("expected Ana after feed tick, got %+v", got)
	}
}

func TestController_Submit_BlankIsNoop(t *testing.T) {
	testCases := []struct {
		name  string
		uname string
		email string
	}{
		{"empty name", "", "ana@x.com"},
		{"blank name", "   ", "ana@x.com"},
		{"empty email", "Ana", ""},
		{"blank email", "Ana", "\t "},
		{"both blank", " ", " "},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, conn := mountWith(t, ana)
			_ = c.UpdateDraft("draft", "draft@x.com")
			before := c.Snapshot()

			if err := c.Submit(context.Background(), tc.uname, tc.email); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if _, create := conn.calls(); create != 0 {
				t.Errorf("expected no create call, got %d", create)
			}
			if after := c.Snapshot(); !reflect.DeepEqual(before, after) {
				t.Errorf("expected no state change, before %+v after %+v", before, after)
			}
		})
	}
}

func TestController_Submit_FailureKeepsDrafts(t *testing.T) {
	c, conn := mountWith(t)
	conn.createFunc = func(ctx context.Context, name, email string) (domain.User, error) {
		return domain.User{}, remoteErr(errors.New("500 internal server error"))
	}

	if err := c.Submit(context.Background(), "Ana", "ana@x.com"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	f := c.Snapshot().Form
	if f.Name != "Ana" || f.Email != "ana@x.com" {
		t.Errorf("expected drafts to be kept, got %+v", f)
	}
	if f.Error == "" {
		t.Error("expected form error to be set")
	}
	if f.InFlight {
		t.Error("expected in-flight flag to be cleared")
	}
}

func TestController_Submit_DuplicateEmailMessage(t *testing.T) {
	c, conn := mountWith(t)
	conn.createFunc = func(ctx context.Context, name, email string) (domain.User, error) {
		return domain.User{}, remoteErr(commonerrors.ErrEmailAlreadyRegistered)
	}

	_ = c.Submit(context.Background(), "Ana", "ana@x.com")

	if got := c.Snapshot().Form.Error; got != "email already registered" {
		t.Errorf("expected duplicate email message, got %q", got)
	}
}

func TestController_Submit_InFlightWhileWaiting(t *testing.T) {
	c, conn := mountWith(t)
	release := make(chan struct{})
	entered := make(chan struct{})
	conn.createFunc = func(ctx context.Context, name, email string) (domain.User, error) {
		close(entered)
		<-release
		return ana, nil
	}

	done := make(chan struct{})
	go func() {
		_ = c.Submit(context.Background(), "Ana", "ana@x.com")
		close(done)
	}()

	<-entered
	if !c.Snapshot().Form.InFlight {
		t.Error("expected in-flight flag during create")
	}
	close(release)
	<-done
	if c.Snapshot().Form.InFlight {
		t.Error("expected in-flight flag cleared after create")
	}
}

func TestController_Submit_SuccessClearsPreviousError(t *testing.T) {
	c, conn := mountWith(t)
	conn.createFunc = func(ctx context.Context, name, email string) (domain.User, error) {
		return domain.User{}, remoteErr(errors.New("down"))
	}
	_ = c.Submit(context.Background(), "Ana", "ana@x.com")

	conn.createFunc = nil
	_ = c.Submit(context.Background(), "Ana", "ana@x.com")

	if f := c.Snapshot().Form; f.Error != "" || f.Name != "" {
		t.Errorf("expected clean form after retry, got %+v", f)
	}
}

func TestController_Remove_DropsEntryImmediately(t *testing.T) {
	c, conn := mountWith(t, caio, bia, ana)
	var deleted domain.ID
	conn.deleteFunc = func(ctx context.Context, id domain.ID) error {
		deleted = id
		return nil
	}

	if err := c.Remove(context.Background(), "id-2"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if deleted != "id-2" {
		t.Errorf("expected delete of id-2, got %s", deleted)
	}
	s := c.Snapshot()
	if !reflect.DeepEqual(s.List.Users, []domain.User{caio, ana}) {
		t.Errorf("expected [Caio Ana], got %+v", s.List.Users)
	}
	if s.List.Loading || s.List.Error != "" {
		t.Errorf("expected settled list without error, got %+v", s.List)
	}
	if list, _ := conn.calls(); list != 1 {
		t.Errorf("expected no refetch for a delete, got %d fetches", list)
	}
}

func TestController_Remove_Failure(t *testing.T) {
	c, conn := mountWith(t, bia, ana)
	conn.deleteFunc = func(ctx context.Context, id domain.ID) error {
		return remoteErr(commonerrors.ErrUserNotFound)
	}

	_ = c.Remove(context.Background(), "id-9")

	s := c.Snapshot()
	if s.List.Error != "user not found" {
		t.Errorf("expected not found message, got %q", s.List.Error)
	}
	if s.List.Loading {
		t.Error("expected loading flag to be cleared")
	}
	if !reflect.DeepEqual(s.List.Users, []domain.User{bia, ana}) {
		t.Errorf("expected list unchanged, got %+v", s.List.Users)
	}
}

func TestController_Remove_SuccessClearsListError(t *testing.T) {
	c, conn := mountWith(t, bia, ana)
	conn.deleteFunc = func(ctx context.Context, id domain.ID) error {
		return remoteErr(errors.New("timeout"))
	}
	_ = c.Remove(context.Background(), "id-1")

	conn.deleteFunc = nil
	_ = c.Remove(context.Background(), "id-1")

	if s := c.Snapshot(); s.List.Error != "" || len(s.List.Users) != 1 {
		t.Errorf("expected error cleared and one user left, got %+v", s.List)
	}
}

func TestController_Close_ReleasesSubscriptionOnce(t *testing.T) {
	c, conn := mountWith(t, ana)

	c.Close()
	c.Close()
	conn.sub.Unsubscribe()

	if got := conn.sub.unsubscribes.Load(); got != 2 {
		t.Errorf("expected controller to unsubscribe exactly once, got %d calls in total", got)
	}
	c.wg.Wait()
}

func TestController_Close_DiscardsLateFetch(t *testing.T) {
	c, conn := mountWith(t, ana)
	before := c.Snapshot()

	release := make(chan struct{})
	entered := make(chan struct{})
	conn.setList(func(context.Context) ([]domain.User, error) {
		close(entered)
		<-release
		return []domain.User{caio, bia, ana}, nil
	})
	conn.sub.events <- changefeed.Event{Table: "users", Op: changefeed.OpInsert}
	<-entered

	c.Close()
	close(release)
	c.wg.Wait()

	after := c.Snapshot()
	if !reflect.DeepEqual(after.List.Users, before.List.Users) {
		t.Errorf("expected late fetch to be discarded, got %+v", after.List.Users)
	}
}

func TestController_CommandsAfterClose(t *testing.T) {
	c, conn := mountWith(t, ana)
	c.Close()

	if err := c.Submit(context.Background(), "Ana", "ana@x.com"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Submit, got %v", err)
	}
	if err := c.Remove(context.Background(), "id-1"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Remove, got %v", err)
	}
	if err := c.UpdateDraft("a", "b"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from UpdateDraft, got %v", err)
	}
	if _, create := conn.calls(); create != 0 {
		t.Errorf("expected no create after close, got %d", create)
	}
}

func TestController_Watch(t *testing.T) {
	c, _, _ := setupController(t)
	conn := c.conn.(*mockConnector)
	conn.setList(func(context.Context) ([]domain.User, error) { return []domain.User{ana}, nil })

	states, cancel := c.Watch()
	defer cancel()

	if s := <-states; s.List.Status != StatusIdle {
		t.Errorf("expected current state first, got %s", s.List.Status)
	}

	_ = c.Initialize(context.Background())

	var latest State
	select {
	case latest = <-states:
	case <-time.After(time.Second):
		t.Fatal("expected a state after initialize")
	}
	if latest.List.Status != StatusLoaded {
		t.Errorf("expected only the latest state to be buffered, got %s", latest.List.Status)
	}

	latest.List.Users[0].Name = "mutated"
	if c.Snapshot().List.Users[0].Name != "Ana" {
		t.Error("expected snapshots to be independent copies")
	}

	c.Close()
	if _, ok := <-states; ok {
		t.Error("expected watch channel to close with the controller")
	}
	cancel()
}

func TestController_WatchAfterClose(t *testing.T) {
	c, _, _ := setupController(t)
	c.Close()

	states, cancel := c.Watch()
	defer cancel()
	if _, ok := <-states; ok {
		t.Error("expected closed channel")
	}
}
