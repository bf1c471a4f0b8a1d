package validation

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Validation rule patterns
var (
	// Student number: faculty letter followed by seven digits
	StudentNumberPattern = `^[bmd]\d{7}$`

	// Password min length
	PasswordMinLength = 8

	// Course and lab name bounds
	NameMinLength = 1
	NameMaxLength = 255

	// GPA bounds
	GPAMin = 0.0
	GPAMax = 4.0
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	StudentNumber *regexp.Regexp
}{
	StudentNumber: regexp.MustCompile(StudentNumberPattern),
}

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator with the project's custom tags registered.
// Field names in errors use the json tag.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = Register(v)
		instance = v
	})
	return instance
}

// Register installs the json field naming and the custom tags on v
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("student_number", func(fl validator.FieldLevel) bool {
		return IsStudentNumber(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("gpa", func(fl validator.FieldLevel) bool {
		return IsValidGPA(fl.Field().Float())
	})
}

// IsStudentNumber reports whether s is a well-formed student number
func IsStudentNumber(s string) bool {
	return CompiledPatterns.StudentNumber.MatchString(s)
}

// IsValidGPA reports whether gpa lies within the GPA bounds
func IsValidGPA(gpa float64) bool {
	return gpa >= GPAMin && gpa <= GPAMax
}

// FieldMessages flattens validator errors into field -> message pairs
func FieldMessages(err error) map[string]string {
	out := map[string]string{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = Message(fe)
	}
	return out
}

// Message creates a human-readable validation error message
func Message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "min", "gte":
		return e.Field() + " must be at least " + e.Param()
	case "max", "lte":
		return e.Field() + " must be at most " + e.Param()
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	case "student_number":
		return e.Field() + " must be a student number such as b1234567"
	case "gpa":
		return e.Field() + " must be between 0 and 4"
	case "unique":
		return e.Field() + " must not contain duplicates"
	default:
		return e.Field() + " validation failed: " + e.Tag()
	}
}
