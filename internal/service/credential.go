package service

import (
	"errors"
	"strings"
)

var ErrEmptyEmail = errors.New("email is required")

// AdvanceToVerification es el evento que emite el envio de credenciales.
type AdvanceToVerification struct {
	Email string
}

// SubmitCredential valida lo minimo (email no vacio) y entrega el control al desafio OTP.
// No llama al servicio remoto; la validacion real ocurre al verificar.
func SubmitCredential(email string) (AdvanceToVerification, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return AdvanceToVerification{}, ErrEmptyEmail
	}
	return AdvanceToVerification{Email: email}, nil
}
