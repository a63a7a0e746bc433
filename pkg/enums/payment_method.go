package enums

import "strings"

// PaymentMethod distinguishes cash-on-delivery orders from gateway payments.
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodOnline PaymentMethod = "online"
)

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	return p == PaymentMethodCOD || p == PaymentMethodOnline
}

// NormalizePaymentMethod maps raw client input onto a PaymentMethod. "cod" in
// any casing selects cash-on-delivery; every other non-empty value is treated
// as an online payment.
func NormalizePaymentMethod(value string) PaymentMethod {
	if strings.EqualFold(strings.TrimSpace(value), string(PaymentMethodCOD)) {
		return PaymentMethodCOD
	}
	return PaymentMethodOnline
}
