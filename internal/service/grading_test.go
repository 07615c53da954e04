package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/school-portal-api/internal/models"
)

func TestComputePercentageAndLetter(t *testing.T) {
	cases := []struct {
		score, max float64
		percentage float64
		letter     string
	}{
		{90, 100, 90, "A"},
		{89.99, 100, 89.99, "B"},
		{59, 100, 59, "F"},
		{82, 100, 82, "B"},
		{2, 3, 66.67, "D"},
		{1, 8, 12.5, "F"},
		{7, 10, 70, "C"},
		{0, 50, 0, "F"},
		{50, 50, 100, "A"},
	}
	for _, tc := range cases {
		p := ComputePercentage(tc.score, tc.max)
		assert.InDelta(t, tc.percentage, p, 0.0001, "score %v/%v", tc.score, tc.max)
		assert.Equal(t, tc.letter, LetterGrade(p), "score %v/%v", tc.score, tc.max)
	}
}

func TestLetterGradeBoundaries(t *testing.T) {
	assert.Equal(t, "A", LetterGrade(90))
	assert.Equal(t, "B", LetterGrade(89.99))
	assert.Equal(t, "B", LetterGrade(80))
	assert.Equal(t, "C", LetterGrade(79.99))
	assert.Equal(t, "D", LetterGrade(60))
	assert.Equal(t, "F", LetterGrade(59.99))
}

func TestInferSemesterAndYear(t *testing.T) {
	cases := []struct {
		month    time.Month
		semester models.Semester
		year     string
	}{
		{time.January, models.SemesterFall, "2023-2024"},
		{time.February, models.SemesterSpring, "2023-2024"},
		{time.June, models.SemesterSpring, "2023-2024"},
		{time.July, models.SemesterSummer, "2023-2024"},
		{time.August, models.SemesterSummer, "2023-2024"},
		{time.September, models.SemesterFall, "2024-2025"},
		{time.December, models.SemesterFall, "2024-2025"},
	}
	for _, tc := range cases {
		at := time.Date(2024, tc.month, 15, 12, 0, 0, 0, time.UTC)
		assert.Equal(t, tc.semester, InferSemester(at), tc.month.String())
		assert.Equal(t, tc.year, InferAcademicYear(at), tc.month.String())
	}
}
