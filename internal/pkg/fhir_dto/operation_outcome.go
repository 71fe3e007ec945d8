package fhir_dto

import (
	"consent-service/internal/pkg/constvars"
	"consent-service/internal/pkg/exceptions"
)

type OperationOutcome struct {
	ResourceType string                  `json:"resourceType"`
	Issue        []OperationOutcomeIssue `json:"issue"`
}

type OperationOutcomeIssue struct {
	Code        string           `json:"code"`
	Severity    string           `json:"severity"`
	Details     *CodeableConcept `json:"details,omitempty"`
	Diagnostics string           `json:"diagnostics,omitempty"`
}

// NewExceptionOutcome is the only place a failure is turned into an OperationOutcome.
// The result always has exactly one error/exception issue whose details text is the
// message carried by err, or "unknown error" when there is none.
func NewExceptionOutcome(err error) *OperationOutcome {
	return &OperationOutcome{
		ResourceType: constvars.ResourceOperationOutcome,
		Issue: []OperationOutcomeIssue{
			{
				Code:     constvars.FhirIssueCodeException,
				Severity: constvars.FhirIssueSeverityError,
				Details:  &CodeableConcept{Text: errorMessage(err)},
			},
		},
	}
}

// DetailsText returns the text of the first issue, or "" when there is none.
func (o *OperationOutcome) DetailsText() string {
	if o == nil || len(o.Issue) == 0 || o.Issue[0].Details == nil {
		return ""
	}
	return o.Issue[0].Details.Text
}

func errorMessage(err error) (message string) {
	message = constvars.FhirUnknownErrorMessage
	if err == nil {
		return message
	}

	// Error() on a foreign type may itself panic, e.g. a typed nil pointer.
	defer func() {
		if recover() != nil {
			message = constvars.FhirUnknownErrorMessage
		}
	}()

	// Only the outermost error counts; a wrapper's own text must survive.
	if customErr, ok := err.(*exceptions.CustomError); ok && customErr != nil {
		if customErr.DevMessage != "" {
			return customErr.DevMessage
		}
		return message
	}

	if text := err.Error(); text != "" {
		return text
	}
	return message
}
