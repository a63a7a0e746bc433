package enums

import "fmt"

// CapturePolicy decides when an online order is considered paid.
//
// ImmediateCapture marks the order paid at creation time; VerifiedCapture
// leaves it unpaid until the gateway signature is verified.
type CapturePolicy string

const (
	CapturePolicyImmediate CapturePolicy = "immediate_capture"
	CapturePolicyVerified  CapturePolicy = "verified_capture"
)

// String implements fmt.Stringer.
func (c CapturePolicy) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CapturePolicy.
func (c CapturePolicy) IsValid() bool {
	return c == CapturePolicyImmediate || c == CapturePolicyVerified
}

// ParseCapturePolicy converts raw input into a CapturePolicy.
func ParseCapturePolicy(value string) (CapturePolicy, error) {
	switch CapturePolicy(value) {
	case CapturePolicyImmediate:
		return CapturePolicyImmediate, nil
	case CapturePolicyVerified:
		return CapturePolicyVerified, nil
	default:
		return "", fmt.Errorf("invalid capture policy %q", value)
	}
}
