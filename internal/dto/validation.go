package dto

import (
	"math"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/grading"
)

// TagScore validation tag for a score in [0, 100]
const TagScore = "score"

// RegisterValidations installs the custom tags used by request DTOs
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation(TagScore, validateScore)
}

func validateScore(fl validator.FieldLevel) bool {
	field := fl.Field()
	switch field.Kind() {
	case reflect.Float32, reflect.Float64:
		f := field.Float()
		if math.IsNaN(f) {
			return false
		}
		return f >= grading.MinScore && f <= grading.MaxScore
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := float64(field.Int())
		return n >= grading.MinScore && n <= grading.MaxScore
	default:
		return false
	}
}
