// Package video submits AI video generation jobs to an external provider
// and tracks them until the provider reports success or failure.
package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/apperr"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/auth"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ids"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/obs"
)

type State string

const (
	StateWaiting State = "waiting"
	StateSuccess State = "success"
	StateFail    State = "fail"
)

const timedOutMsg = "timed out waiting for the provider"

type Task struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Prompt         string    `json:"prompt"`
	ProviderTaskID string    `json:"-"`
	State          State     `json:"state"`
	ResultURL      string    `json:"result_url,omitempty"`
	FailMsg        string    `json:"fail_msg,omitempty"`
	Attempts       int       `json:"attempts"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProviderStatus is one poll result.
type ProviderStatus struct {
	State     State
	ResultURL string
	FailMsg   string
}

// Provider is the external generation API.
type Provider interface {
	Submit(ctx context.Context, prompt string) (string, error)
	Status(ctx context.Context, providerTaskID string) (ProviderStatus, error)
}

type Store interface {
	CreateVideoTask(ctx context.Context, t Task) (Task, error)
	FindVideoTask(ctx context.Context, id string) (Task, error)
	// ClaimVideoPoll counts one poll attempt against a waiting task and
	// returns the row as stored. Finished tasks come back unchanged.
	ClaimVideoPoll(ctx context.Context, id string) (Task, error)
	// UpdateVideoTask records the state, result and failure message of a
	// waiting task.
	UpdateVideoTask(ctx context.Context, t Task) (Task, error)
	ListWaitingVideoTasks(ctx context.Context, limit int) ([]Task, error)
}

type Authorizer interface {
	Require(ctx context.Context, userID string, c auth.Capability) error
}

var (
	ErrNotFound      = apperr.NotFound("video_not_found", "video task not found")
	ErrInvalidPrompt = apperr.Validation("invalid_prompt", "prompt must be between 3 and 1000 characters")
	ErrDisabled      = apperr.Precondition("video_disabled", "video generation is not configured")
)

type Service struct {
	store       Store
	provider    Provider
	gate        Authorizer
	maxAttempts int
}

// NewService returns a Service. provider may be nil, in which case Generate
// fails with ErrDisabled.
func NewService(store Store, provider Provider, gate Authorizer, maxAttempts int) *Service {
	if maxAttempts < 1 {
		maxAttempts = 60
	}
	return &Service{store: store, provider: provider, gate: gate, maxAttempts: maxAttempts}
}

// Generate submits prompt on behalf of userID. Requires generate_ai_video.
func (s *Service) Generate(ctx context.Context, userID, prompt string) (Task, error) {
	if err := s.gate.Require(ctx, userID, auth.CapGenerateVideo); err != nil {
		return Task{}, err
	}
	prompt = strings.TrimSpace(prompt)
	if n := utf8.RuneCountInString(prompt); n < 3 || n > 1000 {
		return Task{}, ErrInvalidPrompt
	}
	if s.provider == nil {
		return Task{}, ErrDisabled
	}
	providerID, err := s.provider.Submit(ctx, prompt)
	if err != nil {
		return Task{}, fmt.Errorf("submit video: %w", err)
	}
	now := time.Now().UTC()
	return s.store.CreateVideoTask(ctx, Task{
		ID:             ids.New(),
		UserID:         userID,
		Prompt:         prompt,
		ProviderTaskID: providerID,
		State:          StateWaiting,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

// Get returns the caller's task, polling the provider once if still waiting.
func (s *Service) Get(ctx context.Context, userID, id string) (Task, error) {
	if !ids.Valid(id) {
		return Task{}, ErrNotFound
	}
	t, err := s.store.FindVideoTask(ctx, id)
	if err != nil {
		return Task{}, err
	}
	if t.UserID != userID {
		return Task{}, ErrNotFound
	}
	if t.State != StateWaiting {
		return t, nil
	}
	return s.Refresh(ctx, t)
}

// Refresh performs one bounded poll for a waiting task. The attempt is
// counted in the store before the provider is asked, so concurrent callers
// never poll more than the attempt budget allows; once it is spent the task
// is failed instead. Provider errors consume an attempt and leave the task
// waiting.
func (s *Service) Refresh(ctx context.Context, t Task) (Task, error) {
	if t.State != StateWaiting {
		return t, nil
	}
	t, err := s.store.ClaimVideoPoll(ctx, t.ID)
	if err != nil || t.State != StateWaiting {
		return t, err
	}
	if t.Attempts > s.maxAttempts || s.provider == nil {
		t.State = StateFail
		t.FailMsg = timedOutMsg
		t.UpdatedAt = time.Now().UTC()
		obs.VideoPolled("timeout")
		return s.store.UpdateVideoTask(ctx, t)
	}

	st, err := s.provider.Status(ctx, t.ProviderTaskID)
	if err != nil {
		obs.Logger().Warn("video status poll failed",
			slog.String("task_id", t.ID),
			slog.Int("attempt", t.Attempts),
			slog.String("error", err.Error()))
		obs.VideoPolled("error")
		return t, nil
	}
	obs.VideoPolled(string(st.State))
	switch st.State {
	case StateSuccess:
		t.State = StateSuccess
		t.ResultURL = st.ResultURL
	case StateFail:
		t.State = StateFail
		t.FailMsg = st.FailMsg
		if t.FailMsg == "" {
			t.FailMsg = "generation failed"
		}
	default:
		return t, nil
	}
	t.UpdatedAt = time.Now().UTC()
	return s.store.UpdateVideoTask(ctx, t)
}

// RefreshPending polls up to limit waiting tasks and returns how many were
// polled. Failures on individual tasks are logged and skipped.
func (s *Service) RefreshPending(ctx context.Context, limit int) (int, error) {
	tasks, err := s.store.ListWaitingVideoTasks(ctx, limit)
	if err != nil {
		return 0, err
	}
	polled := 0
	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return polled, err
		}
		if _, err := s.Refresh(ctx, t); err != nil {
			if errors.Is(err, context.Canceled) {
				return polled, err
			}
			obs.Logger().Error("video refresh failed", slog.String("task_id", t.ID), slog.String("error", err.Error()))
			continue
		}
		polled++
	}
	return polled, nil
}
