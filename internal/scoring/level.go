package scoring

// Level bands a 0-100 competitive score into five named tiers.
type Level int

const (
	VeryLow Level = iota + 1
	Low
	Medium
	High
	VeryHigh
)

// LevelFromScore maps a score to its 20-point band.
func LevelFromScore(score int) Level {
	switch {
	case score <= 20:
		return VeryLow
	case score <= 40:
		return Low
	case score <= 60:
		return Medium
	case score <= 80:
		return High
	default:
		return VeryHigh
	}
}

func (l Level) String() string {
	switch l {
	case VeryLow:
		return "Very Low"
	case Low:
		return "Low"
	case Medium:
		return "Medium"
	case High:
		return "High"
	case VeryHigh:
		return "Very High"
	default:
		return "Medium"
	}
}
