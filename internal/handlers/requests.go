package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// CustomerInfoRequest is required for guest bookings made without an
// authenticated student session.
type CustomerInfoRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
}

// InitializePaymentRequest starts a booking with a hosted checkout. The
// amount actually charged is derived server-side from the plan.
type InitializePaymentRequest struct {
	HostelID     string               `json:"hostel_id" validate:"required"`
	RoomID       string               `json:"room_id" validate:"required"`
	CheckInDate  time.Time            `json:"check_in_date" validate:"required"`
	CheckOutDate time.Time            `json:"check_out_date" validate:"required,gtfield=CheckInDate"`
	Duration     string               `json:"duration" validate:"required,oneof=first_semester second_semester full_year"`
	TotalAmount  float64              `json:"total_amount" validate:"required,gt=0"`
	PaymentPlan  string               `json:"payment_plan" validate:"required,oneof=partial full"`
	Customer     *CustomerInfoRequest `json:"customer,omitempty"`
}

// MobilePaymentRequest starts a booking with a direct mobile money
// charge.
type MobilePaymentRequest struct {
	InitializePaymentRequest
	Network     string `json:"network" validate:"required,oneof=mtn vodafone airteltigo"`
	PhoneNumber string `json:"phone_number" validate:"required"`
}

// CompletionRequest starts a hosted balance-settling payment.
type CompletionRequest struct {
	BookingID string `json:"booking_id" validate:"required"`
}

// MobileCompletionRequest settles the balance via mobile money.
type MobileCompletionRequest struct {
	BookingID   string `json:"booking_id" validate:"required"`
	Network     string `json:"network" validate:"required,oneof=mtn vodafone airteltigo"`
	PhoneNumber string `json:"phone_number" validate:"required"`
}

// UpdateStatusRequest is the manual admin/owner transition body.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=cancelled completed"`
}

func validateStruct(data any) map[string]string {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}

	errs := make(map[string]string)
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range validationErrors {
			errs[fe.Field()] = simpleErrorMessage(fe)
		}
	}
	return errs
}

func simpleErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	case "gtfield":
		return fmt.Sprintf("Must be after %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("Invalid %s field", fe.Field())
	}
}
