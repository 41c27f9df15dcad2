package domain

import (
	"errors"
	"testing"
)

func TestGradeClassification(t *testing.T) {
	tests := []struct {
		grade   Grade
		correct bool
		answer  Answer
	}{
		{GradeBlackout, false, AnswerAgain},
		{GradeAgain, false, AnswerAgain},
		{GradeHard, false, AnswerHard},
		{GradeGood, true, AnswerGood},
		{GradeEasy, true, AnswerEasy},
		{GradePerfect, true, AnswerEasy},
	}

	for _, tc := range tests {
		if got := tc.grade.IsCorrect(); got != tc.correct {
			t.Errorf("Grade(%d).IsCorrect() = %v, want %v", tc.grade, got, tc.correct)
		}
		if got := tc.grade.Answer(); got != tc.answer {
			t.Errorf("Grade(%d).Answer() = %q, want %q", tc.grade, got, tc.answer)
		}
	}
}

func TestGradeClamp(t *testing.T) {
	if got := Grade(-3).Clamp(); got != MinGrade {
		t.Errorf("Expected -3 to clamp to %d, got %d", MinGrade, got)
	}
	if got := Grade(9).Clamp(); got != MaxGrade {
		t.Errorf("Expected 9 to clamp to %d, got %d", MaxGrade, got)
	}
	if got := GradeGood.Clamp(); got != GradeGood {
		t.Errorf("Expected in-range grade to be unchanged, got %d", got)
	}
}

func TestParseGrade(t *testing.T) {
	g, err := ParseGrade(4)
	if err != nil || g != GradeEasy {
		t.Errorf("Expected ParseGrade(4) = 4, nil; got %d, %v", g, err)
	}

	for _, v := range []int{-1, 6} {
		if _, err := ParseGrade(v); !errors.Is(err, ErrInvalidGrade) {
			t.Errorf("Expected ErrInvalidGrade for %d, got %v", v, err)
		}
	}
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		in    string
		grade Grade
	}{
		{"again", GradeAgain},
		{"Hard", GradeHard},
		{" good ", GradeGood},
		{"EASY", GradePerfect},
	}
	for _, tc := range tests {
		a, err := ParseAnswer(tc.in)
		if err != nil {
			t.Errorf("ParseAnswer(%q) returned error: %v", tc.in, err)
			continue
		}
		g, err := a.Grade()
		if err != nil || g != tc.grade {
			t.Errorf("Answer %q grade = %d, %v; want %d", a, g, err, tc.grade)
		}
	}

	if _, err := ParseAnswer("maybe"); !errors.Is(err, ErrInvalidAnswer) {
		t.Errorf("Expected ErrInvalidAnswer, got %v", err)
	}
	if _, err := Answer("maybe").Grade(); !errors.Is(err, ErrInvalidAnswer) {
		t.Errorf("Expected ErrInvalidAnswer, got %v", err)
	}
}
