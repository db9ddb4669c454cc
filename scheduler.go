package raid

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/WelcomerTeam/Discord/discord"
	"github.com/WelcomerTeam/Raid-Daemon/raidjson"
	"github.com/hibiken/asynq"
)

// TaskInviteTimeout is the asynq task type for expiring invite dialogs.
const TaskInviteTimeout = "raid:invite_timeout"

// DefaultInviteTimeout is how long an invite dialog stays open.
const DefaultInviteTimeout = 2 * time.Minute

// InviteTimeout closes an invite dialog if Initiator still holds it.
type InviteTimeout struct {
	SessionID discord.Snowflake `json:"session_id"`
	DialogID  discord.Snowflake `json:"dialog_id"`
	Initiator discord.Snowflake `json:"initiator"`
}

// InviteTimeoutHandler expires one dialog. The in-memory scheduler does not
// retry, so handlers log their own failures.
type InviteTimeoutHandler func(ctx context.Context, timeout InviteTimeout) error

// InviteScheduler runs a handler once an invite dialog has been open too long.
type InviteScheduler interface {
	Schedule(ctx context.Context, timeout InviteTimeout, after time.Duration) error
	Start(handler InviteTimeoutHandler) error
	Close() error
}

// InMemoryInviteScheduler uses timers in this process.
type InMemoryInviteScheduler struct {
	mu      sync.Mutex
	timers  map[discord.Snowflake]*time.Timer
	handler InviteTimeoutHandler
	closed  bool
}

func NewInMemoryInviteScheduler() *InMemoryInviteScheduler {
	return &InMemoryInviteScheduler{
		timers: make(map[discord.Snowflake]*time.Timer),
	}
}

func (s *InMemoryInviteScheduler) Start(handler InviteTimeoutHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handler = handler

	return nil
}

// Schedule replaces any pending timeout for the same dialog.
func (s *InMemoryInviteScheduler) Schedule(_ context.Context, timeout InviteTimeout, after time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSchedulerClosed
	}

	if timer, ok := s.timers[timeout.DialogID]; ok {
		timer.Stop()
	}

	var timer *time.Timer

	timer = time.AfterFunc(after, func() {
		s.mu.Lock()

		// Replaced or closed while this timer was firing.
		if s.timers[timeout.DialogID] != timer {
			s.mu.Unlock()

			return
		}

		delete(s.timers, timeout.DialogID)
		handler := s.handler
		s.mu.Unlock()

		if handler != nil {
			handler(context.Background(), timeout) //nolint:errcheck
		}
	})

	s.timers[timeout.DialogID] = timer

	return nil
}

// Pending returns how many timeouts have not fired yet.
func (s *InMemoryInviteScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.timers)
}

func (s *InMemoryInviteScheduler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}

	s.closed = true

	return nil
}

// AsynqInviteScheduler stores timeouts in Redis through asynq so they survive
// a restart of the worker that opened the dialog.
type AsynqInviteScheduler struct {
	client *asynq.Client
	server *asynq.Server
}

func NewAsynqInviteScheduler(opt asynq.RedisClientOpt, concurrency int) *AsynqInviteScheduler {
	return &AsynqInviteScheduler{
		client: asynq.NewClient(opt),
		server: asynq.NewServer(opt, asynq.Config{
			Concurrency: max(concurrency, 1),
		}),
	}
}

func (s *AsynqInviteScheduler) Schedule(ctx context.Context, timeout InviteTimeout, after time.Duration) error {
	payload, err := raidjson.Marshal(timeout)
	if err != nil {
		return fmt.Errorf("failed to marshal invite timeout: %w", err)
	}

	task := asynq.NewTask(TaskInviteTimeout, payload)

	_, err = s.client.EnqueueContext(ctx, task,
		asynq.ProcessIn(after),
		asynq.MaxRetry(1),
		asynq.TaskID(fmt.Sprintf("%s:%d", TaskInviteTimeout, timeout.DialogID)),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue invite timeout: %w", err)
	}

	return nil
}

func (s *AsynqInviteScheduler) Start(handler InviteTimeoutHandler) error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskInviteTimeout, func(ctx context.Context, task *asynq.Task) error {
		var timeout InviteTimeout
		if err := raidjson.Unmarshal(task.Payload(), &timeout); err != nil {
			return fmt.Errorf("failed to unmarshal invite timeout: %w", err)
		}

		return handler(ctx, timeout)
	})

	if err := s.server.Start(mux); err != nil {
		return fmt.Errorf("failed to start asynq server: %w", err)
	}

	return nil
}

func (s *AsynqInviteScheduler) Close() error {
	s.server.Shutdown()

	return s.client.Close()
}
