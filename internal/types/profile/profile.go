package profile

const (
	DefaultActivity = "Sport"
	DefaultGoal     = 4

	MinGoal = 1
	MaxGoal = 7
)

// Profile is global per user, not scoped to any challenge. PendingGoal,
// when non-nil, replaces WeeklyGoal at the next week boundary.
type Profile struct {
	UserID      string `json:"user_id" db:"user_id"`
	UserName    string `json:"user_name" db:"user_name"`
	Activity    string `json:"activity" db:"activity"`
	WeeklyGoal  int    `json:"weekly_goal" db:"weekly_goal"`
	PendingGoal *int   `json:"pending_goal,omitempty" db:"pending_goal"`
}

type ProfileStats struct {
	Profile          *Profile `json:"profile"`
	WeekCheckins     int      `json:"week_checkins"`
	TotalCheckins    int      `json:"total_checkins"`
	ActiveChallenges int      `json:"active_challenges"`
}

type UpdateProfileRequest struct {
	Activity *string `json:"activity,omitempty"`
	Goal     *int    `json:"goal,omitempty"`
}

// UpdateResult tells the caller whether a requested goal change took effect
// immediately or was deferred to the next week boundary.
type UpdateResult struct {
	Profile      *Profile `json:"profile"`
	GoalDeferred bool     `json:"goal_deferred"`
}
