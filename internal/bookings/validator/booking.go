package validator

import (
	"fmt"
	"regexp"
	"strings"

	"radiantgo/pkg/logger"
	"radiantgo/pkg/model"

	"github.com/go-playground/validator/v10"
)

// Booking references look like RG-3F9A27C1: fixed prefix plus eight upper
// hex characters.
var refRegex = regexp.MustCompile(`^RG-[0-9A-F]{8}$`)

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

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()

	if err := v.RegisterValidation("booking_ref", validateBookingRef); err != nil {
		log.Fatal("Failed to register 'booking_ref' validator", "error", err)
	}
	if err := v.RegisterValidation("booking_status", validateBookingStatus); err != nil {
		log.Fatal("Failed to register 'booking_status' validator", "error", err)
	}

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func validateBookingRef(fl validator.FieldLevel) bool {
	return refRegex.MatchString(fl.Field().String())
}

func validateBookingStatus(fl validator.FieldLevel) bool {
	return model.BookingStatus(fl.Field().String()).IsValid()
}

func (bv *BookingValidator) Validate(booking *model.Booking) error {
	return bv.translate(bv.validate.Struct(booking))
}

func (bv *BookingValidator) ValidateStatusUpdate(update *model.StatusUpdate) error {
	return bv.translate(bv.validate.Struct(update))
}

func (bv *BookingValidator) translate(err error) error {
	if err == nil {
		return nil
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	var out ValidationErrors
	for _, fe := range fieldErrors {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: messageFor(fe),
		})
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "booking_ref":
		return "must match the RG-XXXXXXXX reference format"
	case "booking_status":
		return "is not a recognized booking status"
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "alpha":
		return "must contain only letters"
	case "uppercase":
		return "must be uppercase"
	case "necsfield":
		return "must differ from origin"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
