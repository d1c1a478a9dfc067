package service

// Recorder recibe los eventos del flujo de autenticacion que interesan a metricas.
type Recorder interface {
	OTPIssuance(result string)
	OTPVerification(result string)
	SessionTransition(event string)
}

// NopRecorder descarta todos los eventos.
type NopRecorder struct{}

func (NopRecorder) OTPIssuance(string)       {}
func (NopRecorder) OTPVerification(string)   {}
func (NopRecorder) SessionTransition(string) {}
