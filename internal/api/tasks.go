package api

import (
	"context"
	"net/url"
)

// ListTasks fetches the server's processing tasks, newest first. Paperless
// uses these to report consumption status for uploaded documents.
func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	// /api/tasks/ returns a bare array, not the paginated envelope.
	var out []Task
	if err := c.get(ctx, "/api/tasks/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTask fetches a single task by its queue uuid.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	v := url.Values{}
	v.Set("task_id", taskID)
	var out []Task
	if err := c.get(ctx, "/api/tasks/", v, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

// AcknowledgeTasks marks tasks as seen so the server stops reporting them.
func (c *Client) AcknowledgeTasks(ctx context.Context, ids []int64) error {
	payload := map[string]any{"tasks": ids}
	return c.send(ctx, "POST", "/api/acknowledge_tasks/", payload, nil)
}
