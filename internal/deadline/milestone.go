// Package deadline derives internal preparation milestones from a sponsor
// deadline, classifies their urgency and reconciles derived tasks against the
// grant set. Everything here is pure: no I/O, and "today" comes from an
// injected clock.
package deadline

import (
	"errors"
	"fmt"
	"time"

	"grantline/internal/calendar"
)

var ErrInvalidDate = errors.New("invalid sponsor deadline")

type Key string

const (
	InitialNotification Key = "initial_notification"
	BudgetMeeting       Key = "budget_meeting"
	FinalizeBudget      Key = "finalize_budget"
	SubcontractorDocs   Key = "subcontractor_docs"
	InternalAdminDocs   Key = "internal_admin_docs"
	AdminComponent      Key = "admin_component"
	InternalScienceDocs Key = "internal_science_docs"
	ScienceComponent    Key = "science_component"
	SponsorDeadline     Key = "sponsor_deadline"
)

// Owner is the party responsible for a milestone.
type Owner string

const (
	OwnerPI    Owner = "pi"
	OwnerAdmin Owner = "admin"
	OwnerBoth  Owner = "both"
)

// Definition is the static description of one milestone.
type Definition struct {
	Key          Key    `json:"key"`
	Label        string `json:"label"`
	ShortLabel   string `json:"short_label"`
	Description  string `json:"description"`
	Owner        Owner  `json:"owner"`
	Weeks        int    `json:"weeks_before,omitempty"`
	BusinessDays int    `json:"business_days_before,omitempty"`
}

var definitions = []Definition{
	{
		Key:         InitialNotification,
		Label:       "Initial notification to research office",
		ShortLabel:  "Notify",
		Description: "PI notifies the research office of intent to submit, with sponsor, solicitation and deadline.",
		Owner:       OwnerPI,
		Weeks:       8,
	},
	{
		Key:         BudgetMeeting,
		Label:       "Budget planning meeting",
		ShortLabel:  "Budget mtg",
		Description: "PI and grants administrator meet to scope personnel, subawards and cost share.",
		Owner:       OwnerBoth,
		Weeks:       6,
	},
	{
		Key:         FinalizeBudget,
		Label:       "Finalize budget",
		ShortLabel:  "Budget final",
		Description: "Budget and budget justification are final; no further changes without administrator review.",
		Owner:       OwnerBoth,
		Weeks:       4,
	},
	{
		Key:          SubcontractorDocs,
		Label:        "Subcontractor documents due",
		ShortLabel:   "Subawards",
		Description:  "Letters of intent, statements of work and budgets from subrecipients are collected.",
		Owner:        OwnerPI,
		BusinessDays: 18,
	},
	{
		Key:          InternalAdminDocs,
		Label:        "Internal administrative documents due",
		ShortLabel:   "Admin docs",
		Description:  "Routing form, biosketches, current and pending support and facilities statements go to the office.",
		Owner:        OwnerBoth,
		BusinessDays: 14,
	},
	{
		Key:          AdminComponent,
		Label:        "Administrative component complete",
		ShortLabel:   "Admin done",
		Description:  "Research office completes and locks the administrative portion of the application.",
		Owner:        OwnerAdmin,
		BusinessDays: 8,
	},
	{
		Key:          InternalScienceDocs,
		Label:        "Internal science documents due",
		ShortLabel:   "Science docs",
		Description:  "Final research narrative, specific aims and supporting science documents are handed over.",
		Owner:        OwnerBoth,
		BusinessDays: 5,
	},
	{
		Key:          ScienceComponent,
		Label:        "Science component uploaded",
		ShortLabel:   "Science up",
		Description:  "Research office uploads the science documents and runs sponsor validation.",
		Owner:        OwnerAdmin,
		BusinessDays: 3,
	},
	{
		Key:         SponsorDeadline,
		Label:       "Sponsor deadline",
		ShortLabel:  "Deadline",
		Description: "Application is submitted to the sponsor.",
		Owner:       OwnerBoth,
	},
}

// Definitions returns the milestone table in derivation order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Keys returns the milestone keys in derivation order.
func Keys() []Key {
	out := make([]Key, len(definitions))
	for i, d := range definitions {
		out[i] = d.Key
	}
	return out
}

// Lookup returns the definition for key.
func Lookup(key Key) (Definition, bool) {
	for _, d := range definitions {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}

type Milestone struct {
	Key         Key    `json:"key"`
	Label       string `json:"label"`
	ShortLabel  string `json:"short_label"`
	Description string `json:"description"`
	Date        string `json:"date" format:"date"`
	Owner       Owner  `json:"owner"`

	day time.Time
}

// Day returns the milestone date as a calendar date.
func (m Milestone) Day() time.Time {
	if m.day.IsZero() && m.Date != "" {
		d, _ := calendar.ParseDate(m.Date)
		return d
	}
	return m.day
}

// Deriver computes milestones over a holiday calendar.
type Deriver struct {
	Calendar *calendar.Calendar
}

// Derive parses an ISO sponsor deadline and returns its nine milestones.
func (d Deriver) Derive(deadline string) ([]Milestone, error) {
	day, err := calendar.ParseDate(deadline)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDate, err)
	}
	return d.DeriveDate(day), nil
}

// DeriveDate computes each milestone independently from the deadline date.
func (d Deriver) DeriveDate(deadline time.Time) []Milestone {
	deadline = calendar.DateOf(deadline)
	out := make([]Milestone, 0, len(definitions))
	for _, def := range definitions {
		day := deadline
		switch {
		case def.Weeks > 0:
			day = calendar.SubtractWeeks(deadline, def.Weeks)
		case def.BusinessDays > 0:
			day = d.Calendar.SubtractBusinessDays(deadline, def.BusinessDays)
		}
		out = append(out, Milestone{
			Key:         def.Key,
			Label:       def.Label,
			ShortLabel:  def.ShortLabel,
			Description: def.Description,
			Date:        calendar.FormatDate(day),
			Owner:       def.Owner,
			day:         day,
		})
	}
	return out
}
