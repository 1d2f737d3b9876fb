package grading

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

const (
	MinScore = 0
	MaxScore = 100
)

var (
	ErrScoreOutOfRange = errors.New("nilai harus antara 0-100")
	ErrScoreInvalid    = errors.New("nilai harus berupa angka")
)

// ParseScore parses a cell's raw text. Empty input clears the score (nil).
// Both "85.5" and "85,5" are accepted.
func ParseScore(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	v, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, ErrScoreInvalid
	}
	if err := ValidateScore(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

// ValidateScore checks a present score lies in [0, 100]. Nil is valid.
func ValidateScore(v *float64) error {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return ErrScoreInvalid
	}
	if *v < MinScore || *v > MaxScore {
		return ErrScoreOutOfRange
	}
	return nil
}
