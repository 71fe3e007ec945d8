package fhir_dto

import "consent-service/internal/pkg/constvars"

type ConsentAction string

const (
	ConsentActionOptIn  ConsentAction = constvars.FhirConsentActionOptIn
	ConsentActionOptOut ConsentAction = constvars.FhirConsentActionOptOut
)

// ConsentUpdateRequest is the caller facing shape of a consent decision.
type ConsentUpdateRequest struct {
	PatientID string        `json:"patientId" validate:"required"`
	Action    ConsentAction `json:"action" validate:"required,oneof=OPTIN OPTOUT"`
	Agent     string        `json:"agent" validate:"required"`
}

// ConsentUpdatePayload is the wire body of POST /Consent. The remote API receives the
// patient identifier under both patient_id and patientId.
type ConsentUpdatePayload struct {
	PatientIDParam string        `json:"patient_id"`
	PatientID      string        `json:"patientId"`
	Action         ConsentAction `json:"action"`
	Agent          string        `json:"agent"`
}

func NewConsentUpdatePayload(request *ConsentUpdateRequest) *ConsentUpdatePayload {
	if request == nil {
		return &ConsentUpdatePayload{}
	}
	return &ConsentUpdatePayload{
		PatientIDParam: request.PatientID,
		PatientID:      request.PatientID,
		Action:         request.Action,
		Agent:          request.Agent,
	}
}
