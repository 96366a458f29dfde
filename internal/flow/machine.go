package flow

import "regexp"

type step int

const (
	stepIdle step = iota
	stepAwaitingPhone
	stepAwaitingCode
)

func (s step) String() string {
	switch s {
	case stepAwaitingPhone:
		return "awaiting_phone"
	case stepAwaitingCode:
		return "awaiting_code"
	default:
		return "idle"
	}
}

var (
	// International format: leading plus, 8-15 digits.
	phoneRe = regexp.MustCompile(`^\+\d{8,15}$`)
	// Telegram login codes are 5 or 6 digits.
	codeRe = regexp.MustCompile(`^\d{5,6}$`)
)

const (
	msgPhonePrompt = "📱 Please send your phone number in international format (e.g., +123456789)\n\nNote: this should be the number of the account you want to create a session for."
	msgSendingCode = "⌛ Sending verification code to your Telegram account."
	msgCodeSent    = "📨 Verification code sent! Please enter the code you received."
	msgCreating    = "⌛ Creating session."
	msgTimedOut    = "⌛ Session creation timed out. Please start again with /start"

	msgInvalidPhone = "❌ Invalid phone format. Use international format (e.g., +123456789)"
	msgInvalidCode  = "❌ Invalid code format. Please enter a 5-6 digit code"
	msgSuccess      = "✅ Session created successfully!\n\nHere is your session string:"
	msgKeepSafe     = "⚠️ Keep this safe and don't share it with anyone!"
)

// userFlow is the per-user conversational state. It is created in
// AWAITING_PHONE, moves strictly forward to AWAITING_CODE, and is removed on
// success, error, restart, or timeout. Owned exclusively by the Coordinator;
// all access happens under the user's lock.
type userFlow struct {
	userID int64
	step   step
	phone  string

	// prompt is the most recent processing/prompt message, edited in place.
	prompt    MessageRef
	hasPrompt bool

	// retries counts failed validation attempts at the current step.
	retries int

	// gen distinguishes this flow from earlier flows of the same user so a
	// stale timeout callback can detect it lost the race.
	gen uint64
}

func validatePhone(text string) error {
	if !phoneRe.MatchString(text) {
		return &ValidationError{Reason: "invalid phone format"}
	}
	return nil
}

func validateCode(text string) error {
	if !codeRe.MatchString(text) {
		return &ValidationError{Reason: "invalid code format"}
	}
	return nil
}
