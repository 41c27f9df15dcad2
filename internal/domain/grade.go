package domain

import (
	"fmt"
	"strings"
)

// Grade is a recall-quality score on the SuperMemo 0–5 scale.
// Grades of 3 and above count as a correct answer.
type Grade int

// Grade values.
const (
	GradeBlackout Grade = 0 // no recall at all
	GradeAgain    Grade = 1 // wrong, but recognised once shown
	GradeHard     Grade = 2 // wrong, answer felt familiar
	GradeGood     Grade = 3 // correct with serious effort
	GradeEasy     Grade = 4 // correct after hesitation
	GradePerfect  Grade = 5 // instant, perfect recall

	MinGrade = GradeBlackout
	MaxGrade = GradePerfect

	// CorrectThreshold is the lowest grade counted as a correct answer.
	CorrectThreshold = GradeGood
)

// IsValid reports whether g is on the 0–5 scale.
func (g Grade) IsValid() bool {
	return g >= MinGrade && g <= MaxGrade
}

// IsCorrect reports whether g counts as a correct answer.
func (g Grade) IsCorrect() bool {
	return g >= CorrectThreshold
}

// Clamp returns g forced onto the 0–5 scale.
func (g Grade) Clamp() Grade {
	if g < MinGrade {
		return MinGrade
	}
	if g > MaxGrade {
		return MaxGrade
	}
	return g
}

// Answer returns the answer button a grade belongs to.
func (g Grade) Answer() Answer {
	return gradeAnswers[g.Clamp()]
}

// ParseGrade converts a raw integer into a Grade.
func ParseGrade(v int) (Grade, error) {
	g := Grade(v)
	if !g.IsValid() {
		return 0, fmt.Errorf("%w: %d is outside 0-5", ErrInvalidGrade, v)
	}
	return g, nil
}

// Answer is one of the four buttons shown to the user after revealing a card.
type Answer string

// Answer values.
const (
	AnswerAgain Answer = "again"
	AnswerHard  Answer = "hard"
	AnswerGood  Answer = "good"
	AnswerEasy  Answer = "easy"
)

// answerGrades maps each button onto the grade fed to the algorithm.
var answerGrades = map[Answer]Grade{
	AnswerAgain: GradeAgain,
	AnswerHard:  GradeHard,
	AnswerGood:  GradeGood,
	AnswerEasy:  GradePerfect,
}

// gradeAnswers classifies every grade into the button it corresponds to.
var gradeAnswers = map[Grade]Answer{
	GradeBlackout: AnswerAgain,
	GradeAgain:    AnswerAgain,
	GradeHard:     AnswerHard,
	GradeGood:     AnswerGood,
	GradeEasy:     AnswerEasy,
	GradePerfect:  AnswerEasy,
}

// Grade returns the algorithm grade for the answer button.
func (a Answer) Grade() (Grade, error) {
	g, ok := answerGrades[a]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAnswer, string(a))
	}
	return g, nil
}

// ParseAnswer converts a case-insensitive button name into an Answer.
func ParseAnswer(s string) (Answer, error) {
	a := Answer(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := answerGrades[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidAnswer, s)
	}
	return a, nil
}
