package domain

// Session es el estado de autenticacion visible para todo el proceso.
type Session struct {
	IsAuthenticated bool      `json:"isAuthenticated"`
	Identity        *Identity `json:"identity,omitempty"`
	IsLoading       bool      `json:"isLoading"`
}

// ChallengeState enumera los estados de un desafio OTP.
type ChallengeState string

const (
	ChallengeIssuing      ChallengeState = "issuing"
	ChallengeAwaitingCode ChallengeState = "awaiting_code"
	ChallengeVerifying    ChallengeState = "verifying"
	ChallengeResending    ChallengeState = "resending"
	ChallengeVerified     ChallengeState = "verified"
	ChallengeAbandoned    ChallengeState = "abandoned"
)

// Terminal reporta si el estado ya no admite transiciones.
func (s ChallengeState) Terminal() bool {
	return s == ChallengeVerified || s == ChallengeAbandoned
}

// PendingVerification es la vista de un desafio en curso. Nunca se persiste.
type PendingVerification struct {
	Email                  string         `json:"email"`
	OTPDigits              string         `json:"otpDigits"`
	ResendCountdownSeconds int            `json:"resendCountdownSeconds"`
	CanResend              bool           `json:"canResend"`
	LastError              string         `json:"lastError,omitempty"`
	State                  ChallengeState `json:"state"`
}
