package notifications

import "fmt"

// OTPMessage renders the one-time password email body.
func OTPMessage(name, code string, validMinutes int) (subject, body string) {
	subject = "Your Novatra verification code"
	body = fmt.Sprintf(
		"Hi %s,\n\nYour verification code is %s. It is valid for %d minutes.\n\nIf you did not request this code, you can ignore this email.\n\nThe Novatra team",
		name, code, validMinutes,
	)
	return subject, body
}

// MerchantApprovedMessage renders the approval notification body.
func MerchantApprovedMessage(name string) (subject, body string) {
	subject = "Your Novatra merchant account is approved"
	body = fmt.Sprintf(
		"Hi %s,\n\nYour merchant account has been approved. You can now publish products and receive orders.\n\nThe Novatra team",
		name,
	)
	return subject, body
}
