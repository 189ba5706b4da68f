package validator

import (
	"reflect"
	"strings"

	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator combines struct tag validation with the structural checks
// for quiz documents that tags cannot express.
type Validator struct {
	structValidator   *validator.Validate
	questionValidator *QuestionValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		questionValidator: NewQuestionValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// Var validates a single value against a tag expression.
func (v *Validator) Var(field string, value interface{}, tag string) error {
	if err := v.structValidator.Var(value, tag); err != nil {
		errs := ToValidationErrors(err)
		for i := range errs {
			errs[i].Field = field
		}
		return errs
	}
	return nil
}

// ValidateSaveRequest validates the create/update payload: struct tags first,
// then each question's variant invariants.
func (v *Validator) ValidateSaveRequest(req *models.SaveQuizRequest) error {
	if err := v.ValidateStruct(req); err != nil {
		return err
	}
	if errs := v.questionValidator.ValidatePages(req.Questions.Pages); len(errs) > 0 {
		return errs
	}
	return nil
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", validateQuestionType)
	validate.RegisterValidation("attempt_filter", validateAttemptFilter)
	validate.RegisterValidation("user_role", validateUserRole)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateQuestionType(fl validator.FieldLevel) bool {
	return models.QuestionType(fl.Field().String()).Valid()
}

func validateAttemptFilter(fl validator.FieldLevel) bool {
	return models.AttemptFilter(fl.Field().String()).Valid()
}

func validateUserRole(fl validator.FieldLevel) bool {
	return models.UserRole(fl.Field().String()).Valid()
}
