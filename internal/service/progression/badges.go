package progression

import (
	"github.com/civicquest/civicquest-api/internal/models"
)

// Badge codes.
const (
	BadgeFirstStep    = "first_step"
	BadgeHighFlyer    = "high_flyer"
	BadgeStreakMaster = "streak_master"
	BadgeQuizGod      = "quiz_god"
	BadgeSurvivor     = "survivor"
	BadgeSpeedster    = "speedster"
)

// badgeContext is the post-update state a badge rule is evaluated against.
type badgeContext struct {
	Level          int
	Streak         int
	Score          int
	TotalQuestions int
	Mode           string
}

// BadgeRule pairs catalog metadata with its earning criterion. Rules are
// checked independently against the state after the current activity has
// been applied; a badge once earned is never re-awarded or revoked.
type BadgeRule struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	earned      func(bc badgeContext) bool
}

// badgeCatalog is loaded once and never mutated.
var badgeCatalog = []BadgeRule{
	{
		Code:        BadgeFirstStep,
		Name:        "First Step",
		Description: "Complete your first activity",
		Icon:        "👣",
		earned:      func(badgeContext) bool { return true },
	},
	{
		Code:        BadgeHighFlyer,
		Name:        "High Flyer",
		Description: "Reach level 5",
		Icon:        "🪁",
		earned:      func(bc badgeContext) bool { return bc.Level >= 5 },
	},
	{
		Code:        BadgeStreakMaster,
		Name:        "Streak Master",
		Description: "Stay active 3 days in a row",
		Icon:        "🔥",
		earned:      func(bc badgeContext) bool { return bc.Streak >= 3 },
	},
	{
		Code:        BadgeQuizGod,
		Name:        "Quiz God",
		Description: "Score a perfect quiz of at least 5 questions",
		Icon:        "🏛️",
		earned: func(bc badgeContext) bool {
			return bc.TotalQuestions >= 5 && bc.Score == bc.TotalQuestions
		},
	},
	{
		Code:        BadgeSurvivor,
		Name:        "Survivor",
		Description: "Reach 20 correct answers in a survival run",
		Icon:        "🛡️",
		earned: func(bc badgeContext) bool {
			return bc.Mode == models.ModeSurvival && bc.Score >= 20
		},
	},
	{
		Code:        BadgeSpeedster,
		Name:        "Speedster",
		Description: "Reach 15 correct answers in a speed run",
		Icon:        "⚡",
		earned: func(bc badgeContext) bool {
			return bc.Mode == models.ModeSpeedrun && bc.Score >= 15
		},
	},
}

// evaluateBadges returns the codes newly earned for this activity.
func evaluateBadges(prog *models.Progression, bc badgeContext) []string {
	var newCodes []string
	for _, rule := range badgeCatalog {
		if prog.HasBadge(rule.Code) {
			continue
		}
		if rule.earned(bc) {
			newCodes = append(newCodes, rule.Code)
		}
	}
	return newCodes
}

// Catalog returns a copy of the badge catalog for API consumers.
func Catalog() []BadgeRule {
	out := make([]BadgeRule, len(badgeCatalog))
	copy(out, badgeCatalog)
	return out
}
