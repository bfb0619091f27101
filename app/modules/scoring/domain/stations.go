package scoringdomain

import (
	"errors"

	sharedtypes "github.com/Black-And-White-Club/keyquest/app/shared/types"
)

// Station keys with a built-in calculator.
const (
	StationPhishing    sharedtypes.StationKey = "phishing"
	StationPasswords   sharedtypes.StationKey = "passwords"
	StationFirewall    sharedtypes.StationKey = "firewall"
	StationDrones      sharedtypes.StationKey = "drones"
	StationControl     sharedtypes.StationKey = "control"
	StationMasterReset sharedtypes.StationKey = "master_reset"
)

// StationMaxScore is the cap every web station scores against.
const StationMaxScore = 200

var (
	ErrNoCalculator       = errors.New("station has no calculator")
	ErrPasswordCount      = errors.New("exactly three passwords are required")
	ErrRepeatedPassword   = errors.New("passwords must all be different")
	ErrNegativeSignal     = errors.New("signal counts must not be negative")
	ErrTooManyAnswers     = errors.New("answers exceed the number of items")
	ErrUnsupportedSignals = errors.New("signals do not apply to this station")
)

// Signals are the raw outcome reported by a mini-game. Each station reads the
// fields it needs and ignores the rest.
type Signals struct {
	Total         int      `json:"total,omitempty"`
	Correct       int      `json:"correct"`
	Mistakes      int      `json:"mistakes"`
	Unplaced      int      `json:"unplaced,omitempty"`
	ElapsedSec    int      `json:"elapsed_sec"`
	Passwords     []string `json:"passwords,omitempty"`
	LivesLeft     int      `json:"lives_left,omitempty"`
	PhasesCleared int      `json:"phases_cleared,omitempty"`
}

// Evaluation is what a calculator hands back to the ledger.
type Evaluation struct {
	Score         int
	EarnsFragment bool
	Meta          map[string]any
}

// Calculator turns signals into a bounded score.
type Calculator func(Signals) (Evaluation, error)

var calculators = map[sharedtypes.StationKey]Calculator{
	StationPhishing:  ScorePhishing,
	StationPasswords: ScorePasswords,
	StationFirewall:  ScoreFirewall,
	StationDrones:    ScoreDrones,
	StationControl:   ScoreControl,
}

// CalculatorFor returns the calculator registered for key.
func CalculatorFor(key sharedtypes.StationKey) (Calculator, error) {
	c, ok := calculators[key]
	if !ok {
		return nil, ErrNoCalculator
	}
	return c, nil
}

// Phishing station parameters.
const (
	PhishingItems        = 10
	PhishingMistakeCost  = 5
	PhishingDecayStart   = 180
	PhishingDecayStep    = 10
	PhishingDecayPerStep = 2
)

// ScorePhishing classifies mails: accuracy share of 200, minus 5 per wrong or
// unplaced mail, minus 2 every 10s after three minutes.
func ScorePhishing(s Signals) (Evaluation, error) {
	total := defaultTotal(s.Total, PhishingItems)
	if err := checkCounts(total, s.Correct, s.Mistakes, s.Unplaced, s.ElapsedSec); err != nil {
		return Evaluation{}, err
	}

	base := RuleComplianceScore(s.Correct, total, StationMaxScore)
	bad := s.Mistakes + s.Unplaced
	penalty := bad * PhishingMistakeCost
	decay := DecayPenalty(s.ElapsedSec, PhishingDecayStart, PhishingDecayStep, PhishingDecayPerStep)

	return Evaluation{
		Score:         Clamp(base-penalty-decay, 0, StationMaxScore),
		EarnsFragment: true,
		Meta: map[string]any{
			"elapsed_sec": s.ElapsedSec,
			"correct":     s.Correct,
			"mistakes":    bad,
			"breakdown": map[string]int{
				"base_score":       base,
				"penalty_mistakes": penalty,
				"time_penalty":     decay,
			},
		},
	}, nil
}

// Passwords station parameters.
const (
	PasswordAttempts     = 3
	PasswordDecayStart   = 120
	PasswordDecayStep    = 10
	PasswordDecayPerStep = 2
)

// ScorePasswords averages the rule score of three distinct passwords and applies
// a decay of 2 points every 10s after two minutes.
func ScorePasswords(s Signals) (Evaluation, error) {
	if len(s.Passwords) != PasswordAttempts {
		return Evaluation{}, ErrPasswordCount
	}
	if s.ElapsedSec < 0 {
		return Evaluation{}, ErrNegativeSignal
	}

	seen := make(map[string]struct{}, PasswordAttempts)
	attempts := make([]map[string]any, 0, PasswordAttempts)
	sum := 0
	for _, pw := range s.Passwords {
		fp := PasswordFingerprint(pw)
		if _, dup := seen[fp]; dup {
			return Evaluation{}, ErrRepeatedPassword
		}
		seen[fp] = struct{}{}

		report := EvaluatePassword(pw)
		score := RuleComplianceScore(report.Satisfied, PasswordRuleCount, StationMaxScore)
		sum += score
		attempts = append(attempts, map[string]any{
			"rules":        report,
			"entropy_bits": report.EntropyBits,
			"score":        score,
			"all_ok":       report.Satisfied == PasswordRuleCount,
			"fingerprint":  fp,
		})
	}

	average := scale(sum, 1, PasswordAttempts)
	decay := DecayPenalty(s.ElapsedSec, PasswordDecayStart, PasswordDecayStep, PasswordDecayPerStep)

	return Evaluation{
		Score:         Clamp(average-decay, 0, StationMaxScore),
		EarnsFragment: true,
		Meta: map[string]any{
			"elapsed_sec":   s.ElapsedSec,
			"attempts":      attempts,
			"average_score": average,
			"decay_points":  decay,
		},
	}, nil
}

// Firewall station parameters.
const (
	FirewallRules        = 10
	FirewallMistakeCost  = 5
	FirewallDecayStart   = 120
	FirewallDecayStep    = 10
	FirewallDecayPerStep = 2
)

// ScoreFirewall is allow/block triage: accuracy share of 200, minus 5 per mistake,
// minus 2 every 10s after two minutes.
func ScoreFirewall(s Signals) (Evaluation, error) {
	total := defaultTotal(s.Total, FirewallRules)
	if err := checkCounts(total, s.Correct, s.Mistakes, 0, s.ElapsedSec); err != nil {
		return Evaluation{}, err
	}

	base := RuleComplianceScore(s.Correct, total, StationMaxScore)
	penalty := s.Mistakes*FirewallMistakeCost +
		DecayPenalty(s.ElapsedSec, FirewallDecayStart, FirewallDecayStep, FirewallDecayPerStep)

	return Evaluation{
		Score:         Clamp(base-penalty, 0, StationMaxScore),
		EarnsFragment: true,
		Meta: map[string]any{
			"elapsed_sec": s.ElapsedSec,
			"correct":     s.Correct,
			"mistakes":    s.Mistakes,
			"rules":       total,
		},
	}, nil
}

// Drones station parameters.
const (
	DroneSignals     = 25
	DronePointsRight = 8
	DronePointsWrong = 8
)

// ScoreDrones adds 8 per correctly classified signal and removes 8 per wrong one.
func ScoreDrones(s Signals) (Evaluation, error) {
	total := defaultTotal(s.Total, DroneSignals)
	if err := checkCounts(total, s.Correct, s.Mistakes, 0, s.ElapsedSec); err != nil {
		return Evaluation{}, err
	}

	raw := s.Correct*DronePointsRight - s.Mistakes*DronePointsWrong
	return Evaluation{
		Score:         Clamp(raw, 0, StationMaxScore),
		EarnsFragment: true,
		Meta: map[string]any{
			"elapsed_sec": s.ElapsedSec,
			"correct":     s.Correct,
			"wrong":       s.Mistakes,
			"signals":     total,
		},
	}, nil
}

// Control station parameters.
const (
	ControlLevels = 12
	ControlPhases = 3
	ControlLives  = 3
)

// ControlAccuracyTimeConfig is the AccuracyTimeScore tuning for the control room.
var ControlAccuracyTimeConfig = AccuracyTimeConfig{
	MaxScore:     StationMaxScore,
	TargetSec:    90,
	OverStepSec:  3,
	BonusPerStep: 2,
}

// ScoreControl uses the accuracy/time formula. Only a flawless run (every phase
// cleared with all lives left) earns the fragment.
func ScoreControl(s Signals) (Evaluation, error) {
	total := defaultTotal(s.Total, ControlLevels)
	if err := checkCounts(total, s.Correct, s.Mistakes, 0, s.ElapsedSec); err != nil {
		return Evaluation{}, err
	}
	if s.LivesLeft < 0 || s.LivesLeft > ControlLives || s.PhasesCleared < 0 || s.PhasesCleared > ControlPhases {
		return Evaluation{}, ErrUnsupportedSignals
	}

	b := AccuracyTimeScore(total, s.Correct, s.Mistakes, s.ElapsedSec, ControlAccuracyTimeConfig)
	perfect := s.LivesLeft == ControlLives && s.PhasesCleared == ControlPhases

	return Evaluation{
		Score:         b.Score,
		EarnsFragment: perfect,
		Meta: map[string]any{
			"elapsed_sec":    s.ElapsedSec,
			"lives_left":     s.LivesLeft,
			"phases_cleared": s.PhasesCleared,
			"perfect":        perfect,
			"breakdown":      b,
		},
	}, nil
}

func defaultTotal(reported, fallback int) int {
	if reported > 0 {
		return reported
	}
	return fallback
}

func checkCounts(total, correct, mistakes, unplaced, elapsed int) error {
	if correct < 0 || mistakes < 0 || unplaced < 0 || elapsed < 0 {
		return ErrNegativeSignal
	}
	if correct+mistakes+unplaced > total {
		return ErrTooManyAnswers
	}
	return nil
}
