package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/video"
)

const videoColumns = `id, user_id, prompt, provider_task_id, state, result_url, fail_msg, attempts, created_at, updated_at`

func scanVideoTask(row rowScanner) (video.Task, error) {
	var (
		t     video.Task
		state string
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Prompt, &t.ProviderTaskID, &state, &t.ResultURL, &t.FailMsg, &t.Attempts, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return video.Task{}, video.ErrNotFound
	}
	if err != nil {
		return video.Task{}, err
	}
	t.State = video.State(state)
	return t, nil
}

func (s *Store) CreateVideoTask(ctx context.Context, t video.Task) (video.Task, error) {
	return scanVideoTask(s.db.QueryRowContext(ctx, `
		insert into video_tasks (id, user_id, prompt, provider_task_id, state)
		values ($1, $2, $3, $4, $5)
		returning `+videoColumns,
		t.ID, t.UserID, t.Prompt, t.ProviderTaskID, string(t.State)))
}

func (s *Store) FindVideoTask(ctx context.Context, id string) (video.Task, error) {
	return scanVideoTask(s.db.QueryRowContext(ctx, `select `+videoColumns+` from video_tasks where id = $1`, id))
}

// ClaimVideoPoll bumps attempts in place so concurrent pollers each see a
// distinct count.
func (s *Store) ClaimVideoPoll(ctx context.Context, id string) (video.Task, error) {
	claimed, err := scanVideoTask(s.db.QueryRowContext(ctx, `
		update video_tasks
		set attempts = attempts + 1, updated_at = now()
		where id = $1 and state = 'waiting'
		returning `+videoColumns, id))
	if errors.Is(err, video.ErrNotFound) {
		return s.FindVideoTask(ctx, id)
	}
	return claimed, err
}

// UpdateVideoTask only touches rows still waiting so a slow poll cannot
// overwrite a result recorded by a concurrent one.
func (s *Store) UpdateVideoTask(ctx context.Context, t video.Task) (video.Task, error) {
	updated, err := scanVideoTask(s.db.QueryRowContext(ctx, `
		update video_tasks
		set state = $2, result_url = $3, fail_msg = $4, updated_at = now()
		where id = $1 and state = 'waiting'
		returning `+videoColumns,
		t.ID, string(t.State), t.ResultURL, t.FailMsg))
	if errors.Is(err, video.ErrNotFound) {
		return s.FindVideoTask(ctx, t.ID)
	}
	return updated, err
}

func (s *Store) ListWaitingVideoTasks(ctx context.Context, limit int) ([]video.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+videoColumns+` from video_tasks
		where state = 'waiting'
		order by id asc
		limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []video.Task
	for rows.Next() {
		t, err := scanVideoTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
