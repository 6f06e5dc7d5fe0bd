package domain

// Grant statuses. Only not_started and in_progress take part in milestone
// derivation.
const (
	GrantNotStarted = "not_started"
	GrantInProgress = "in_progress"
	GrantSubmitted  = "submitted"
	GrantAwarded    = "awarded"
	GrantNotFunded  = "not_funded"
	GrantWithdrawn  = "withdrawn"
)

// Task statuses and priorities.
const (
	TaskPending    = "pending"
	TaskInProgress = "in_progress"
	TaskCompleted  = "completed"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

var GrantStatuses = []string{GrantNotStarted, GrantInProgress, GrantSubmitted, GrantAwarded, GrantNotFunded, GrantWithdrawn}

type Grant struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Sponsor   string   `json:"sponsor,omitempty"`
	Deadline  *string  `json:"deadline,omitempty" format:"date"`
	Status    string   `json:"status" enum:"not_started,in_progress,submitted,awarded,not_funded,withdrawn"`
	PI        []string `json:"pi"`
	Notes     string   `json:"notes,omitempty"`
	CreatedAt string   `json:"created_at" format:"date-time"`
	UpdatedAt string   `json:"updated_at" format:"date-time"`
}

// Active reports whether the grant is still being prepared.
func (g Grant) Active() bool {
	return g.Status == GrantNotStarted || g.Status == GrantInProgress
}

// LeadPI is the default assignee for derived tasks; empty means unassigned.
func (g Grant) LeadPI() string {
	if len(g.PI) == 0 {
		return ""
	}
	return g.PI[0]
}

type Task struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	GrantID      *string `json:"grant_id,omitempty"`
	ProjectID    *string `json:"project_id"`
	DueDate      *string `json:"due_date,omitempty" format:"date"`
	Status       string  `json:"status" enum:"pending,in_progress,completed"`
	Priority     string  `json:"priority" enum:"low,medium,high"`
	Assignee     string  `json:"assignee,omitempty"`
	MilestoneKey *string `json:"milestone_key,omitempty"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
	UpdatedAt    string  `json:"updated_at" format:"date-time"`
}

// Derived reports whether the task was created by the milestone synchronizer.
func (t Task) Derived() bool {
	return t.MilestoneKey != nil && *t.MilestoneKey != ""
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
