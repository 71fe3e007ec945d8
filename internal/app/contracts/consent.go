package contracts

import (
	"context"

	"consent-service/internal/pkg/fhir_dto"

	"github.com/goccy/go-json"
)

// ConsentResult is returned by every consent operation. Exactly one of Body and
// Outcome is set: Body holds the verbatim upstream JSON for any status below 500,
// Outcome holds the normalized failure.
type ConsentResult struct {
	StatusCode int
	Body       json.RawMessage
	Outcome    *fhir_dto.OperationOutcome
}

func (r *ConsentResult) IsOutcome() bool {
	return r.Outcome != nil
}

// JSON renders the result the way a caller would receive it on the wire.
func (r *ConsentResult) JSON() ([]byte, error) {
	if r.IsOutcome() {
		return json.Marshal(r.Outcome)
	}
	return r.Body, nil
}

type ConsentFhirClient interface {
	GetConsent(ctx context.Context, patientID string) *ConsentResult
	UpdateConsent(ctx context.Context, request *fhir_dto.ConsentUpdateRequest) *ConsentResult
}
