package domain

import (
	"sort"
	"strings"
	"time"
)

// ChoiceOption is a compact snapshot of an alternative that was on the
// table when the group made a choice.
type ChoiceOption struct {
	Title         string             `json:"title"`
	Year          *int               `json:"year,omitempty"`
	GroupScore    float64            `json:"group_score"`
	PerUserScores map[string]float64 `json:"per_user_scores"`
}

// ChoiceRecord is an immutable snapshot of one finalized group choice.
type ChoiceRecord struct {
	Timestamp     time.Time          `json:"timestamp"`
	Members       []string           `json:"members"`
	ChosenTitle   string             `json:"chosen_title"`
	ChosenYear    *int               `json:"chosen_year,omitempty"`
	ChosenGenres  []int              `json:"chosen_genres"`
	ChosenScore   float64            `json:"chosen_score"`
	PerUserScores map[string]float64 `json:"per_user_scores"`
	ChosenCinema  string             `json:"chosen_cinema,omitempty"`
	ChosenTime    *time.Time         `json:"chosen_time,omitempty"`
	Options       []ChoiceOption     `json:"options"`
}

// Preferences is the aggregate learned from every recorded choice.
type Preferences struct {
	GenreCounts      map[int]int        `json:"genre_counts"`
	CinemaCounts     map[string]int     `json:"cinema_counts"`
	ChosenHours      []int              `json:"chosen_hours"`
	UserSatisfaction map[string]float64 `json:"user_satisfaction"`
	SessionCount     int                `json:"session_count"`
}

// NewPreferences returns an empty aggregate with initialized maps.
func NewPreferences() Preferences {
	return Preferences{
		GenreCounts:      map[int]int{},
		CinemaCounts:     map[string]int{},
		ChosenHours:      []int{},
		UserSatisfaction: map[string]float64{},
	}
}

// Ensure fills nil maps left behind by partial or legacy payloads.
func (p *Preferences) Ensure() {
	if p.GenreCounts == nil {
		p.GenreCounts = map[int]int{}
	}
	if p.CinemaCounts == nil {
		p.CinemaCounts = map[string]int{}
	}
	if p.ChosenHours == nil {
		p.ChosenHours = []int{}
	}
	if p.UserSatisfaction == nil {
		p.UserSatisfaction = map[string]float64{}
	}
}

// GroupHistory is the full learning state of a group.
type GroupHistory struct {
	GroupID     string         `json:"group_id"`
	Choices     []ChoiceRecord `json:"history"`
	Preferences Preferences    `json:"preferences"`
}

// NewGroupHistory returns a fresh, empty history for groupID.
func NewGroupHistory(groupID string) *GroupHistory {
	return &GroupHistory{GroupID: groupID, Choices: []ChoiceRecord{}, Preferences: NewPreferences()}
}

// GroupID derives the canonical identifier of a member set: trimmed,
// lowercased, sorted usernames joined by "_". Blank names are ignored.
func GroupID(members []string) string {
	return strings.Join(NormalizeMembers(members), "_")
}

// NormalizeMembers trims, lowercases, de-duplicates and sorts usernames.
func NormalizeMembers(members []string) []string {
	seen := make(map[string]struct{}, len(members))
	out := make([]string, 0, len(members))
	for _, m := range members {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == "" {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// GroupRecord is the persisted aggregate row of a group.
type GroupRecord struct {
	GroupID     string      `gorm:"type:varchar(255);primaryKey"`
	Preferences Preferences `gorm:"type:text;serializer:json"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the database table name for GroupRecord.
func (GroupRecord) TableName() string { return "group_histories" }

// ChoiceRow is the persisted form of a ChoiceRecord. Seq orders the
// records of one group.
type ChoiceRow struct {
	ID        string       `gorm:"type:char(36);primaryKey"`
	GroupID   string       `gorm:"type:varchar(255);not null;uniqueIndex:ux_choice_group_seq,priority:1"`
	Seq       int          `gorm:"not null;uniqueIndex:ux_choice_group_seq,priority:2"`
	Timestamp time.Time    `gorm:"not null"`
	Record    ChoiceRecord `gorm:"type:text;serializer:json"`
}

// TableName returns the database table name for ChoiceRow.
func (ChoiceRow) TableName() string { return "choice_records" }

// Absorb folds one choice into the aggregate counters.
func (p *Preferences) Absorb(rec ChoiceRecord) {
	p.Ensure()
	for _, g := range rec.ChosenGenres {
		p.GenreCounts[g]++
	}
	if rec.ChosenCinema != "" {
		p.CinemaCounts[rec.ChosenCinema]++
	}
	if rec.ChosenTime != nil {
		p.ChosenHours = append(p.ChosenHours, rec.ChosenTime.Hour())
	}
	for user, score := range rec.PerUserScores {
		p.UserSatisfaction[user] += score
	}
	p.SessionCount++
}

// Record appends rec to the history and folds it into the preferences.
func (h *GroupHistory) Record(rec ChoiceRecord) {
	h.Choices = append(h.Choices, rec)
	h.Preferences.Absorb(rec)
}
