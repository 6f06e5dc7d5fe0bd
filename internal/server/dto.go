package server

import (
	"grantline/internal/deadline"
	"grantline/internal/domain"
)

// Request payloads

type CreateGrantRequest struct {
	ID       *string  `json:"id,omitempty"`
	Title    string   `json:"title"`
	Sponsor  *string  `json:"sponsor,omitempty"`
	Deadline *string  `json:"deadline,omitempty" format:"date"`
	Status   *string  `json:"status,omitempty" enum:"not_started,in_progress,submitted,awarded,not_funded,withdrawn"`
	PI       []string `json:"pi,omitempty"`
	Notes    *string  `json:"notes,omitempty"`
}

// UpdateGrantRequest is a partial update. A null deadline clears it.
type UpdateGrantRequest struct {
	Title    *string  `json:"title,omitempty"`
	Sponsor  *string  `json:"sponsor,omitempty"`
	Deadline *string  `json:"deadline,omitempty" format:"date" nullable:"true"`
	Status   *string  `json:"status,omitempty" enum:"not_started,in_progress,submitted,awarded,not_funded,withdrawn"`
	PI       []string `json:"pi,omitempty"`
	Notes    *string  `json:"notes,omitempty"`
}

type CreateTaskRequest struct {
	ID          *string `json:"id,omitempty"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	GrantID     *string `json:"grant_id,omitempty"`
	DueDate     *string `json:"due_date,omitempty" format:"date"`
	Status      *string `json:"status,omitempty" enum:"pending,in_progress,completed"`
	Priority    *string `json:"priority,omitempty" enum:"low,medium,high"`
	Assignee    *string `json:"assignee,omitempty"`
}

// UpdateTaskRequest is a partial update. A null due_date clears it.
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	DueDate     *string `json:"due_date,omitempty" format:"date" nullable:"true"`
	Status      *string `json:"status,omitempty" enum:"pending,in_progress,completed"`
	Priority    *string `json:"priority,omitempty" enum:"low,medium,high"`
	Assignee    *string `json:"assignee,omitempty"`
}

// Response payloads

type grantList struct {
	Items []domain.Grant `json:"items"`
}

type taskList struct {
	Items []domain.Task `json:"items"`
}

type alertList struct {
	Items []deadline.Alert `json:"items"`
}

type holidayList struct {
	Items []string `json:"items" format:"date"`
}

type MilestonesResponse struct {
	Deadline string                   `json:"deadline" format:"date"`
	Today    string                   `json:"today" format:"date"`
	Entries  []deadline.TimelineEntry `json:"entries"`
}

type paginatedEvents struct {
	Items      []domain.Event `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
