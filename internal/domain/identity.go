package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Identity es el resultado de un login verificado. Se trata como valor inmutable.
type Identity struct {
	UserID     string `json:"userId,omitempty"`
	Email      string `json:"email,omitempty"`
	Name       string `json:"name,omitempty"`
	UID        string `json:"uid,omitempty"`
	WebsiteURL string `json:"websiteUrl,omitempty"`
	AdminURL   string `json:"adminUrl,omitempty"`
}

// Tenant agrupa las URLs con las que las pantallas de inventario direccionan su backend.
type Tenant struct {
	WebsiteURL string `json:"websiteUrl"`
	AdminURL   string `json:"adminUrl"`
}

// Valid indica si la identidad tiene lo minimo para considerarse presente.
func (i Identity) Valid() bool {
	return strings.TrimSpace(i.UserID) != "" || strings.TrimSpace(i.Email) != ""
}

func (i Identity) Tenant() Tenant {
	return Tenant{WebsiteURL: i.WebsiteURL, AdminURL: i.AdminURL}
}

// VerificationResponse es el payload de un otp_verify exitoso.
// Un puntero nil significa que el campo no vino en la respuesta.
type VerificationResponse struct {
	Success    *bool   `json:"success,omitempty"`
	Message    *string `json:"message,omitempty"`
	UserID     *string `json:"userId,omitempty"`
	Email      *string `json:"email,omitempty"`
	Name       *string `json:"name,omitempty"`
	UID        *string `json:"uid,omitempty"`
	WebsiteURL *string `json:"websiteUrl,omitempty"`
	AdminURL   *string `json:"adminUrl,omitempty"`
}

// UnmarshalJSON acepta userId y uid como texto o como numero.
func (r *VerificationResponse) UnmarshalJSON(data []byte) error {
	type plain VerificationResponse
	aux := struct {
		*plain
		UserID json.RawMessage `json:"userId,omitempty"`
		UID    json.RawMessage `json:"uid,omitempty"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if r.UserID, err = looseString(aux.UserID); err != nil {
		return fmt.Errorf("userId: %w", err)
	}
	if r.UID, err = looseString(aux.UID); err != nil {
		return fmt.Errorf("uid: %w", err)
	}
	return nil
}

func looseString(raw json.RawMessage) (*string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("expected string or number, got %s", raw)
	}
	v := n.String()
	return &v, nil
}

// Rejected indica si el servicio respondio 200 pero marco la verificacion como fallida.
func (r VerificationResponse) Rejected() bool {
	return r.Success != nil && !*r.Success
}

// MergeIdentity aplica la respuesta sobre la identidad previa. Los campos de la respuesta ganan.
func MergeIdentity(prev Identity, resp VerificationResponse) Identity {
	merged := prev
	if resp.UserID != nil {
		merged.UserID = *resp.UserID
	}
	if resp.Email != nil {
		merged.Email = *resp.Email
	}
	if resp.Name != nil {
		merged.Name = *resp.Name
	}
	if resp.UID != nil {
		merged.UID = *resp.UID
	}
	if resp.WebsiteURL != nil {
		merged.WebsiteURL = *resp.WebsiteURL
	}
	if resp.AdminURL != nil {
		merged.AdminURL = *resp.AdminURL
	}
	return merged
}
