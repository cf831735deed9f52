// Package ledger holds the live, in-memory family record and its mutations.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kawadia/dad-son-fitness-challenge/internal/domain"
	"github.com/kawadia/dad-son-fitness-challenge/internal/observability"
	"github.com/kawadia/dad-son-fitness-challenge/internal/stats"
)

// Celebration marks the moment a user crossed the day's goal.
type Celebration struct {
	User domain.User `json:"user"`
	At   time.Time   `json:"at"`
}

// View is an immutable snapshot handed to observers and readers.
type View struct {
	FamilyID    string
	Today       string
	Record      domain.FamilyRecord
	Celebration *Celebration
}

// Option configures optional Store behaviour.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the zone used to derive calendar dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Store owns one family's record for the lifetime of a connection.
// Mutations apply locally first, then persist the whole document through the bridge.
// A failed save is reported to the caller and the local change is kept.
type Store struct {
	key    string
	bridge domain.SyncBridge
	now    func() time.Time
	loc    *time.Location
	logger *slog.Logger

	// saveMu is held from snapshot through Save so snapshots reach the bridge in order.
	saveMu sync.Mutex

	mu          sync.Mutex
	record      domain.FamilyRecord
	today       string
	celebration *Celebration
	observers   map[int]func(View)
	nextID      int
	unsubscribe domain.Unsubscribe
	connected   bool
	closed      bool
	done        chan struct{}
}

// NewStore builds a Store for an already normalised family key.
func NewStore(familyKey string, bridge domain.SyncBridge, opts ...Option) *Store {
	s := &Store{
		key:       familyKey,
		bridge:    bridge,
		now:       time.Now,
		loc:       time.Local,
		logger:    slog.Default(),
		observers: make(map[int]func(View)),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "ledger", "family", familyKey)
	s.today = domain.DateKey(s.now(), s.loc)
	s.record = domain.NewFamilyRecord(s.now())
	return s
}

// FamilyID returns the normalised family key.
func (s *Store) FamilyID() string {
	return s.key
}

// Now returns the store clock's time in the store's location.
func (s *Store) Now() time.Time {
	return s.now().In(s.loc)
}

// Done is closed once the store is disconnected.
func (s *Store) Done() <-chan struct{} {
	return s.done
}

// Connect loads the family document, creating it when absent, then subscribes to remote changes.
func (s *Store) Connect(ctx context.Context) error {
	rec, err := s.bridge.Load(ctx, s.key)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		rec = domain.NewFamilyRecord(s.now())
		if err := s.bridge.Create(ctx, s.key, rec); err != nil {
			observability.RecordSyncFailure("create")
			return transportError(err)
		}
		s.logger.Info("created family document")
	case err != nil:
		observability.RecordSyncFailure("load")
		return transportError(err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrNotConnected
	}
	s.applyLocked(rec)
	s.mu.Unlock()

	unsubscribe, err := s.bridge.Subscribe(ctx, s.key, s.Reconcile)
	if err != nil {
		observability.RecordSyncFailure("subscribe")
		return transportError(err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		unsubscribe()
		return domain.ErrNotConnected
	}
	s.unsubscribe = unsubscribe
	s.connected = true
	s.mu.Unlock()

	s.notify()
	return nil
}

// Disconnect tears down the subscription. Later results from in-flight calls are discarded.
func (s *Store) Disconnect() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.connected = false
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.observers = make(map[int]func(View))
	close(s.done)
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	s.logger.Info("disconnected")
}

// AddSession logs reps of exercise for u on the current date.
func (s *Store) AddSession(ctx context.Context, u domain.User, exercise domain.Exercise, reps int) (domain.Session, error) {
	if !u.Valid() {
		return domain.Session{}, fmt.Errorf("%w: unknown user %q", domain.ErrInvalidInput, u)
	}
	if _, err := domain.ParseExercise(string(exercise)); err != nil {
		return domain.Session{}, err
	}
	if err := domain.ValidateReps(reps); err != nil {
		return domain.Session{}, err
	}

	now := s.now()
	session := domain.NewSession(exercise, reps, now.In(s.loc))

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return domain.Session{}, domain.ErrNotConnected
	}
	before, _ := s.record.Day(u, s.today)
	day := s.record.AppendSession(u, s.today, session)
	if day.GoalMet && !before.GoalMet {
		s.celebration = &Celebration{User: u, At: now}
	}
	s.record.Touch(now)
	snapshot := s.record.Clone()
	s.mu.Unlock()

	observability.RecordSessionAdded(string(u), string(exercise))
	s.notify()
	return session, s.persist(ctx, snapshot)
}

// UndoLastSession removes u's most recent session today. It returns nil without
// error when there is nothing to undo.
func (s *Store) UndoLastSession(ctx context.Context, u domain.User) (*domain.Session, error) {
	if !u.Valid() {
		return nil, fmt.Errorf("%w: unknown user %q", domain.ErrInvalidInput, u)
	}

	now := s.now()

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return nil, domain.ErrNotConnected
	}
	last, ok := s.record.PopSession(u, s.today)
	if !ok {
		s.mu.Unlock()
		return nil, nil
	}
	s.celebration = nil
	s.record.Touch(now)
	snapshot := s.record.Clone()
	s.mu.Unlock()

	observability.RecordSessionUndone(string(u))
	s.notify()
	return &last, s.persist(ctx, snapshot)
}

// SetGoal overrides the goal for date and regrades both users on that date.
func (s *Store) SetGoal(ctx context.Context, date string, goal int) error {
	key, err := domain.ParseDateKey(date)
	if err != nil {
		return err
	}
	if err := domain.ValidateGoal(goal); err != nil {
		return err
	}

	now := s.now()

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return domain.ErrNotConnected
	}
	s.record.SetGoal(key, goal)
	s.record.Touch(now)
	snapshot := s.record.Clone()
	s.mu.Unlock()

	s.notify()
	return s.persist(ctx, snapshot)
}

// Reconcile replaces local state with a remote snapshot. Applying the same
// snapshot twice leaves the store unchanged.
func (s *Store) Reconcile(remote domain.FamilyRecord) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.applyLocked(remote)
	s.mu.Unlock()

	observability.RecordReconcile()
	s.notify()
}

// CheckDate moves the store to the clock's current date if it has changed.
// Earlier days are left as they are.
func (s *Store) CheckDate() bool {
	date := domain.DateKey(s.now(), s.loc)

	s.mu.Lock()
	if date == s.today || s.closed {
		s.mu.Unlock()
		return false
	}
	previous := s.today
	s.today = date
	s.record.EnsureDay(date)
	s.celebration = nil
	s.mu.Unlock()

	s.logger.Info("date changed", "from", previous, "to", date)
	s.notify()
	return true
}

// WatchDate calls CheckDate every interval until ctx is cancelled or the store disconnects.
func (s *Store) WatchDate(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.CheckDate()
		}
	}
}

// Observe registers fn to receive a View after every state change.
func (s *Store) Observe(fn func(View)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Today returns the store's current date key.
func (s *Store) Today() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.today
}

// GoalFor returns the active goal for date.
func (s *Store) GoalFor(date string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.GoalFor(date)
}

// TodaysProgress returns u's total reps today.
func (s *Store) TodaysProgress(u domain.User) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stats.TodaysProgress(s.record, u, s.today)
}

// TodaysSessions returns u's sessions today, oldest first.
func (s *Store) TodaysSessions(u domain.User) []domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stats.TodaysSessions(s.record, u, s.today)
}

// Streak returns u's current goal streak.
func (s *Store) Streak(u domain.User) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stats.Streak(s.record, u, s.today)
}

// CanUndo reports whether u has a session today.
func (s *Store) CanUndo(u domain.User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stats.CanUndo(s.record, u, s.today)
}

// HasAchievedGoal reports whether u met today's goal.
func (s *Store) HasAchievedGoal(u domain.User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stats.GoalMet(s.record, u, s.today)
}

func (s *Store) applyLocked(rec domain.FamilyRecord) {
	s.record = rec.Clone()
	s.record.EnsureDay(s.today)
}

func (s *Store) viewLocked() View {
	view := View{
		FamilyID: s.key,
		Today:    s.today,
		Record:   s.record.Clone(),
	}
	if s.celebration != nil {
		c := *s.celebration
		view.Celebration = &c
	}
	return view
}

func (s *Store) notify() {
	s.mu.Lock()
	if len(s.observers) == 0 {
		s.mu.Unlock()
		return
	}
	view := s.viewLocked()
	observers := make([]func(View), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(view)
	}
}

func (s *Store) persist(ctx context.Context, snapshot domain.FamilyRecord) error {
	if err := s.bridge.Save(ctx, s.key, snapshot); err != nil {
		observability.RecordSyncFailure("save")
		s.logger.Warn("save failed, local state is ahead of remote", "error", err)
		return transportError(err)
	}
	observability.RecordSynced(s.now())
	return nil
}

func transportError(err error) error {
	if errors.Is(err, domain.ErrTransport) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrTransport, err)
}
