package lifecycle

import (
	"showroom/internal/domain"
	"showroom/internal/domain/models"
)

var allowedPaymentTransitions = map[models.PaymentStatus]map[models.PaymentStatus]bool{
	models.PaymentPending: {
		models.PaymentProcessing: true,
		models.PaymentSuccess:    true,
		models.PaymentFailed:     true,
		models.PaymentExpired:    true,
		models.PaymentRejected:   true,
	},
	models.PaymentProcessing: {
		models.PaymentSuccess: true,
		models.PaymentFailed:  true,
		models.PaymentExpired: true,
	},
	models.PaymentRejected: {models.PaymentPending: true},
	models.PaymentSuccess:  {models.PaymentRefunded: true},
	models.PaymentFailed:   {},
	models.PaymentExpired:  {},
	models.PaymentRefunded: {},
}

func CanTransitionPayment(from, to models.PaymentStatus) bool {
	m, ok := allowedPaymentTransitions[from]
	if !ok {
		return false
	}
	return m[to]
}

// CheckPayment returns a TransitionError when from -> to is not allowed.
func CheckPayment(from, to models.PaymentStatus) error {
	if CanTransitionPayment(from, to) {
		return nil
	}
	return domain.TransitionError{Resource: "payment", From: string(from), Action: "set_" + string(to)}
}
