// Package scoringdomain holds the pure scoring formulas and the per-station
// calculators built on top of them. Every function is total over int inputs.
package scoringdomain

import "math"

// MistakePenaltyPoints is the fixed deduction per mistake in AccuracyTimeScore.
const MistakePenaltyPoints = 10

// MaxFormulaInput bounds counts and config values before the formulas
// multiply them.
const MaxFormulaInput = 1 << 20

// AccuracyTimeConfig parameterises AccuracyTimeScore.
type AccuracyTimeConfig struct {
	MaxScore     int `yaml:"max_score" json:"max_score"`
	TargetSec    int `yaml:"target_sec" json:"target_sec"`
	OverStepSec  int `yaml:"over_step_sec" json:"over_step_sec"`
	BonusPerStep int `yaml:"bonus_per_step" json:"bonus_per_step"`
}

// DefaultAccuracyTimeConfig is used when a station does not override it.
var DefaultAccuracyTimeConfig = AccuracyTimeConfig{
	MaxScore:     200,
	TargetSec:    60,
	OverStepSec:  3,
	BonusPerStep: 2,
}

// AccuracyTimeBreakdown is the result of AccuracyTimeScore with its components.
type AccuracyTimeBreakdown struct {
	Score          int `json:"score"`
	Base           int `json:"base"`
	MistakePenalty int `json:"mistake_penalty"`
	TimeBonus      int `json:"time_bonus"`
}

// AccuracyTimeScore rewards correct answers and finishing under the target time.
//
//	base    = round(max * correct / max(total, 1))
//	penalty = mistakes * 10
//	bonus   = floor(max(0, target - elapsed) / overStep) * bonusPerStep
//	score   = clamp(base - penalty + bonus, 0, max)
func AccuracyTimeScore(totalItems, correct, mistakes, elapsedSec int, cfg AccuracyTimeConfig) AccuracyTimeBreakdown {
	maxScore := bound(cfg.MaxScore)
	total := max(totalItems, 1)
	correct = Clamp(correct, 0, total)
	mistakes = bound(mistakes)
	elapsedSec = bound(elapsedSec)

	base := scale(maxScore, correct, total)
	penalty := mistakes * MistakePenaltyPoints

	bonus := 0
	if step := bound(cfg.OverStepSec); step > 0 {
		remaining := max(bound(cfg.TargetSec)-elapsedSec, 0)
		bonus = (remaining / step) * bound(cfg.BonusPerStep)
	}

	return AccuracyTimeBreakdown{
		Score:          Clamp(base-penalty+bonus, 0, maxScore),
		Base:           base,
		MistakePenalty: penalty,
		TimeBonus:      bonus,
	}
}

// RuleComplianceScore scales satisfied/total onto [0, max]. A non-positive total scores 0.
func RuleComplianceScore(satisfied, total, maxScore int) int {
	if total <= 0 || maxScore <= 0 {
		return 0
	}
	maxScore = min(maxScore, MaxFormulaInput)
	satisfied = Clamp(satisfied, 0, total)
	return Clamp(scale(maxScore, satisfied, total), 0, maxScore)
}

// DecayPenalty deducts perStep points for every full step seconds past start.
// It is zero at elapsed == start and for a non-positive step.
func DecayPenalty(elapsedSec, startSec, stepSec, perStep int) int {
	if stepSec <= 0 || perStep <= 0 {
		return 0
	}
	over := max(boundSigned(elapsedSec)-boundSigned(startSec), 0)
	return (over / min(stepSec, MaxFormulaInput)) * min(perStep, MaxFormulaInput)
}

// CompletionBonusConfig parameterises CompletionBonus.
type CompletionBonusConfig struct {
	Base        int `yaml:"base" json:"base"`
	PerFragment int `yaml:"per_fragment" json:"per_fragment"`
	FastMax     int `yaml:"fast_max" json:"fast_max"`
	Cap         int `yaml:"cap" json:"cap"`
}

// DefaultCompletionBonusConfig is the final-station bonus used by the game.
var DefaultCompletionBonusConfig = CompletionBonusConfig{
	Base:        40,
	PerFragment: 15,
	FastMax:     20,
	Cap:         100,
}

// FastBonusStepSec is how many elapsed seconds cost one point of the fast bonus.
const FastBonusStepSec = 15

// BonusBreakdown is CompletionBonus with its components.
type BonusBreakdown struct {
	Base      int `json:"base"`
	PerPart   int `json:"per_part"`
	FastBonus int `json:"fast_bonus"`
	Cap       int `json:"cap"`
	Total     int `json:"total"`
}

// CompletionBonus grants the final-station bonus for n valid fragments.
//
//	fast  = max(0, fastMax - floor(elapsed / 15))
//	total = clamp(base + n*perFragment + fast, 0, cap)
func CompletionBonus(validFragments int, cfg CompletionBonusConfig, elapsedSec int) BonusBreakdown {
	validFragments = bound(validFragments)
	elapsedSec = bound(elapsedSec)
	base := boundSigned(cfg.Base)
	perPart := validFragments * boundSigned(cfg.PerFragment)
	fast := max(bound(cfg.FastMax)-elapsedSec/FastBonusStepSec, 0)

	return BonusBreakdown{
		Base:      base,
		PerPart:   perPart,
		FastBonus: fast,
		Cap:       cfg.Cap,
		Total:     Clamp(base+perPart+fast, 0, max(cfg.Cap, 0)),
	}
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func bound(v int) int {
	return Clamp(v, 0, MaxFormulaInput)
}

func boundSigned(v int) int {
	return Clamp(v, -MaxFormulaInput, MaxFormulaInput)
}

// scale returns round(v * num / den) half away from zero. The product is taken
// in float64 so large counts keep their ratio instead of wrapping.
func scale(v, num, den int) int {
	if den == 0 {
		return 0
	}
	return int(math.Round(float64(v) * float64(num) / float64(den)))
}
