package service

import (
	"fmt"
	"math"
	"time"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// ComputePercentage returns score/maxScore as a percentage rounded half-up
// to two decimal places.
func ComputePercentage(score, maxScore float64) float64 {
	if maxScore <= 0 {
		return 0
	}
	raw := score / maxScore * 100
	return math.Floor(raw*100+0.5) / 100
}

// LetterGrade maps a percentage onto A-F using inclusive lower bounds.
func LetterGrade(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	default:
		return "F"
	}
}

// InferSemester derives the semester from a date: September through January
// is fall, February through June spring, July and August summer.
func InferSemester(t time.Time) models.Semester {
	switch m := t.Month(); {
	case m >= time.September || m == time.January:
		return models.SemesterFall
	case m >= time.February && m <= time.June:
		return models.SemesterSpring
	default:
		return models.SemesterSummer
	}
}

// InferAcademicYear labels the academic year containing t, which rolls over
// in September.
func InferAcademicYear(t time.Time) string {
	year := t.Year()
	if t.Month() >= time.September {
		return fmt.Sprintf("%d-%d", year, year+1)
	}
	return fmt.Sprintf("%d-%d", year-1, year)
}
