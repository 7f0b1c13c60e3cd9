package main

import (
	"math"
	"time"
)

// xpPerCoin converts granted XP into coins on day completion.
const xpPerCoin = 10

// xpForLevel is the XP needed to advance from level to level+1. The curve
// grows by 1.5x per level starting at 100.
func xpForLevel(level int) int {
	if level < 1 {
		level = 1
	}
	return int(math.Floor(100 * math.Pow(1.5, float64(level-1))))
}

// addXP credits amount to the profile, carrying over into as many level-ups
// as it covers. Returns the number of levels gained.
func addXP(p *userProfile, amount int) int {
	if p.Level < 1 {
		p.Level = 1
	}
	p.CurrentXP += amount
	gained := 0
	for need := xpForLevel(p.Level); p.CurrentXP >= need; need = xpForLevel(p.Level) {
		p.CurrentXP -= need
		p.Level++
		gained++
	}
	return gained
}

// updateStreak records activity on today. Same day is a no-op, the next day
// extends the streak, and any gap (or first activity) restarts it at 1.
func updateStreak(p *userProfile, today time.Time) {
	day := truncateDay(today)
	if p.LastActiveDate != nil && !p.LastActiveDate.IsZero() {
		last := truncateDay(p.LastActiveDate.Time)
		switch diff := int(day.Sub(last).Hours() / 24); {
		case diff == 0:
			return
		case diff == 1:
			p.StreakDays++
			p.LastActiveDate = &DateOnly{day}
			return
		}
	}
	p.StreakDays = 1
	p.LastActiveDate = &DateOnly{day}
}

// dayReward summarizes what a day completion credited to the profile.
type dayReward struct {
	XP           int `json:"xp"`
	LevelsGained int `json:"levels_gained"`
	Level        int `json:"level"`
	CurrentXP    int `json:"current_xp"`
	StreakDays   int `json:"streak_days"`
	CoinsEarned  int `json:"coins_earned"`
}

// awardDayCompletion credits a completed day's XP, streak, and coins to p.
func awardDayCompletion(p *userProfile, xp int, today time.Time) dayReward {
	levels := addXP(p, xp)
	updateStreak(p, today)
	coins := xp / xpPerCoin
	p.Coins += coins
	return dayReward{
		XP:           xp,
		LevelsGained: levels,
		Level:        p.Level,
		CurrentXP:    p.CurrentXP,
		StreakDays:   p.StreakDays,
		CoinsEarned:  coins,
	}
}
