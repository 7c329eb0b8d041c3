package memory

import (
	"context"
	"sort"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/video"
)

func (s *Store) CreateVideoTask(_ context.Context, t video.Task) (video.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[t.ID] = t
	return t, nil
}

func (s *Store) FindVideoTask(_ context.Context, id string) (video.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.videos[id]
	if !ok {
		return video.Task{}, video.ErrNotFound
	}
	return t, nil
}

func (s *Store) ClaimVideoPoll(_ context.Context, id string) (video.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.videos[id]
	if !ok {
		return video.Task{}, video.ErrNotFound
	}
	if cur.State != video.StateWaiting {
		return cur, nil
	}
	cur.Attempts++
	cur.UpdatedAt = s.now()
	s.videos[id] = cur
	return cur, nil
}

// UpdateVideoTask only changes tasks that are still waiting. The attempt
// counter belongs to ClaimVideoPoll and is left alone.
func (s *Store) UpdateVideoTask(_ context.Context, t video.Task) (video.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.videos[t.ID]
	if !ok {
		return video.Task{}, video.ErrNotFound
	}
	if cur.State != video.StateWaiting {
		return cur, nil
	}
	cur.State = t.State
	cur.ResultURL = t.ResultURL
	cur.FailMsg = t.FailMsg
	cur.UpdatedAt = s.now()
	s.videos[t.ID] = cur
	return cur, nil
}

func (s *Store) ListWaitingVideoTasks(_ context.Context, limit int) ([]video.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []video.Task
	for _, t := range s.videos {
		if t.State == video.StateWaiting {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
