package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"counsel/pkg/logger"
	"counsel/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type ExpertValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewExpertValidator(log *logger.Logger) *ExpertValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	log.Info("Expert validator initialized successfully")

	return &ExpertValidator{
		validate: v,
		logger:   log,
	}
}

func (v *ExpertValidator) ValidateCreate(req *model.CreateExpertRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return v.translate(err)
	}
	return v.validateTags(req.Specialization)
}

func (v *ExpertValidator) ValidateProfile(update *model.ExpertProfileUpdate) error {
	if err := v.validate.Struct(update); err != nil {
		return v.translate(err)
	}
	if update.Specialization != nil {
		return v.validateTags(*update.Specialization)
	}
	return nil
}

// validateTags applies the stored expert's specialization limits to a
// request-side tag list.
func (v *ExpertValidator) validateTags(tags []string) error {
	if err := v.validate.Var(tags, "max=20,dive,min=1,max=100"); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return ValidationErrors{{
				Field:   "specialization",
				Message: "specialization must have at most 20 entries of at most 100 characters",
			}}
		}
		return err
	}
	return nil
}

func (v *ExpertValidator) translate(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	var validationErrors ValidationErrors
	for _, fe := range validationErrs {
		message := fe.Error()

		switch fe.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", fe.Field())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", fe.Field())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   fe.Field(),
			Message: message,
		})
	}
	return validationErrors
}
