package controllers

import (
	"net/http"

	"consent-service/internal/app/contracts"
	"consent-service/internal/pkg/constvars"
	"consent-service/internal/pkg/exceptions"
	"consent-service/internal/pkg/fhir_dto"
	"consent-service/internal/pkg/utils"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

type ConsentController struct {
	Log               *zap.Logger
	ConsentFhirClient contracts.ConsentFhirClient
}

func NewConsentController(logger *zap.Logger, consentFhirClient contracts.ConsentFhirClient) *ConsentController {
	return &ConsentController{
		Log:               logger,
		ConsentFhirClient: consentFhirClient,
	}
}

func (ctrl *ConsentController) GetConsent(w http.ResponseWriter, r *http.Request) {
	patientID := r.URL.Query().Get(constvars.FhirQueryParamPatientID)
	if patientID == "" {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrMissingQueryParam(constvars.FhirQueryParamPatientID))
		return
	}

	result := ctrl.ConsentFhirClient.GetConsent(r.Context(), patientID)
	ctrl.writeConsentResult(w, r, result)
}

func (ctrl *ConsentController) UpdateConsent(w http.ResponseWriter, r *http.Request) {
	request := new(fhir_dto.ConsentUpdateRequest)
	err := json.NewDecoder(r.Body).Decode(request)
	if err != nil {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrCannotParseJSON(err))
		return
	}

	err = utils.ValidateStruct(request)
	if err != nil {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrInputValidation(err))
		return
	}

	result := ctrl.ConsentFhirClient.UpdateConsent(r.Context(), request)
	ctrl.writeConsentResult(w, r, result)
}

// writeConsentResult forwards upstream responses with their own status and maps a
// normalized OperationOutcome to 502.
func (ctrl *ConsentController) writeConsentResult(w http.ResponseWriter, r *http.Request, result *contracts.ConsentResult) {
	statusCode := result.StatusCode
	if result.IsOutcome() {
		statusCode = constvars.StatusBadGateway
	}

	body, err := result.JSON()
	if err != nil {
		utils.BuildErrorResponse(ctrl.Log, w, exceptions.ErrCannotMarshalJSON(err))
		return
	}

	ctrl.Log.Debug("ConsentController wrote consent result",
		zap.String(constvars.LoggingRequestIDKey, utils.GetRequestID(r.Context())),
		zap.Int(constvars.LoggingStatusCodeKey, statusCode),
		zap.Bool("is_outcome", result.IsOutcome()),
	)
	utils.BuildRawResponse(w, statusCode, constvars.MIMEApplicationFHIRJSON, body)
}
