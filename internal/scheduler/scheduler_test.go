package scheduler

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/GregPesc/bot-telegram/internal/store"
	"github.com/GregPesc/bot-telegram/internal/templates"
)

// fakeSender records deliveries and can fail selected chats.
type fakeSender struct {
	mu       sync.Mutex
	sent     []sentMsg
	failChat map[int64]bool
}

type sentMsg struct {
	chatID int64
	text   string
}

func newFakeSender() *fakeSender {
	return &fakeSender{failChat: make(map[int64]bool)}
}

func (f *fakeSender) Send(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failChat[chatID] {
		return errors.New("transport down")
	}
	f.sent = append(f.sent, sentMsg{chatID: chatID, text: text})
	return nil
}

func (f *fakeSender) sentTo(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		if m.chatID == chatID {
			out = append(out, m.text)
		}
	}
	return out
}

func (f *fakeSender) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// SchedulerSuite is a test suite for Scheduler ticks over a real store
// with a simulated clock.
type SchedulerSuite struct {
	suite.Suite
	store  *store.Store
	sender *fakeSender
	sched  *Scheduler
	now    time.Time
}

func (s *SchedulerSuite) SetupTest() {
	var err error
	s.store, err = store.Open(filepath.Join(s.T().TempDir(), "bot_data.json"))
	s.Require().NoError(err)

	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	s.store.SetClock(func() time.Time { return s.now })

	s.sender = newFakeSender()
	s.sched = New(s.store, s.sender, templates.Default(), 0)
	s.sched.SetClock(func() time.Time { return s.now })
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) TestZeroIntervalDefaults() {
	s.Equal(DefaultInterval, s.sched.interval)
}

func (s *SchedulerSuite) TestTickDeliversDueExactlyOnce() {
	_, err := s.store.AddReminder(10, "Buy milk", s.now.Add(time.Minute))
	s.Require().NoError(err)

	// Not due yet: nothing goes out.
	s.sched.Tick()
	s.Zero(s.sender.total())

	// Advance past the trigger and tick: exactly one delivery, marked sent.
	s.now = s.now.Add(2 * time.Minute)
	s.sched.Tick()

	msgs := s.sender.sentTo(10)
	s.Require().Len(msgs, 1)
	s.Contains(msgs[0], "Buy milk")

	u := s.store.GetUser(10)
	s.Require().Len(u.Reminders, 1)
	s.True(u.Reminders[0].Sent)

	// Second tick delivers nothing further.
	s.sched.Tick()
	s.Equal(1, s.sender.total())

	m := s.sched.Metrics()
	s.Equal(int64(3), m.Ticks)
	s.Equal(int64(1), m.Delivered)
	s.Zero(m.Failed)
}

func (s *SchedulerSuite) TestFailedDeliveryRetriedNextTick() {
	_, err := s.store.AddReminder(10, "flaky", s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.sender.failChat[10] = true

	s.now = s.now.Add(2 * time.Minute)
	s.sched.Tick()

	// Failure left it unsent.
	u := s.store.GetUser(10)
	s.False(u.Reminders[0].Sent)
	s.Equal(int64(1), s.sched.Metrics().Failed)

	// Transport recovers; next tick retries and succeeds.
	s.sender.mu.Lock()
	s.sender.failChat[10] = false
	s.sender.mu.Unlock()

	s.sched.Tick()
	s.Require().Len(s.sender.sentTo(10), 1)
	u = s.store.GetUser(10)
	s.True(u.Reminders[0].Sent)
}

func (s *SchedulerSuite) TestOneFailureDoesNotBlockOthers() {
	_, err := s.store.AddReminder(10, "unlucky", s.now.Add(time.Minute))
	s.Require().NoError(err)
	_, err = s.store.AddReminder(20, "lucky", s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.sender.failChat[10] = true

	s.now = s.now.Add(2 * time.Minute)
	s.sched.Tick()

	s.Empty(s.sender.sentTo(10))
	s.Require().Len(s.sender.sentTo(20), 1)

	m := s.sched.Metrics()
	s.Equal(int64(1), m.Delivered)
	s.Equal(int64(1), m.Failed)
}

func (s *SchedulerSuite) TestLateReminderStillDelivered() {
	_, err := s.store.AddReminder(10, "very overdue", s.now.Add(time.Minute))
	s.Require().NoError(err)

	// Many intervals pass without a tick (process was down).
	s.now = s.now.Add(48 * time.Hour)
	s.sched.Tick()

	s.Require().Len(s.sender.sentTo(10), 1)
}

func (s *SchedulerSuite) TestManyDueInOneTick() {
	for i := int64(1); i <= 20; i++ {
		_, err := s.store.AddReminder(i, "bulk", s.now.Add(time.Minute))
		s.Require().NoError(err)
	}

	s.now = s.now.Add(time.Hour)
	s.sched.Tick()

	s.Equal(20, s.sender.total())
	s.Equal(int64(20), s.sched.Metrics().Delivered)
	s.Empty(s.store.ListDueUnsent(s.now))
}
