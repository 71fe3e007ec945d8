package consents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"consent-service/internal/app/contracts"
	"consent-service/internal/app/services/shared/metrics"
	"consent-service/internal/pkg/constvars"
	"consent-service/internal/pkg/exceptions"
	"consent-service/internal/pkg/fhir_dto"
	"consent-service/internal/pkg/utils"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

type consentFhirClient struct {
	BaseUrl      string
	AuthProvider contracts.AuthProvider
	HTTPClient   *http.Client
	Metrics      *metrics.Metrics
	Log          *zap.Logger
}

// NewConsentFhirClient is called once during bootstrap; the returned client holds no
// per call state and is shared by every consumer.
func NewConsentFhirClient(
	baseUrl string,
	authProvider contracts.AuthProvider,
	httpClient *http.Client,
	consentMetrics *metrics.Metrics,
	logger *zap.Logger,
) contracts.ConsentFhirClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &consentFhirClient{
		BaseUrl:      strings.TrimRight(baseUrl, "/") + "/" + constvars.ResourceConsent,
		AuthProvider: authProvider,
		HTTPClient:   httpClient,
		Metrics:      consentMetrics,
		Log:          logger,
	}
}

func (c *consentFhirClient) GetConsent(ctx context.Context, patientID string) (result *contracts.ConsentResult) {
	start := time.Now()
	requestID := utils.GetRequestID(ctx)
	c.Log.Info("consentFhirClient.GetConsent called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPatientIDKey, patientID),
	)
	defer c.finish(metrics.OperationGetConsent, requestID, start, &result)

	query := url.Values{}
	query.Set(constvars.FhirQueryParamPatientID, patientID)
	endpoint := fmt.Sprintf("%s?%s", c.BaseUrl, query.Encode())

	statusCode, body, err := c.send(ctx, metrics.OperationGetConsent, constvars.MethodGet, endpoint, nil)
	if err != nil {
		return c.outcome("consentFhirClient.GetConsent", requestID, err)
	}

	c.Log.Info("consentFhirClient.GetConsent succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.Int(constvars.LoggingStatusCodeKey, statusCode),
	)
	return &contracts.ConsentResult{StatusCode: statusCode, Body: body}
}

// UpdateConsent forwards request as is; validating it is the caller's concern.
func (c *consentFhirClient) UpdateConsent(ctx context.Context, request *fhir_dto.ConsentUpdateRequest) (result *contracts.ConsentResult) {
	start := time.Now()
	requestID := utils.GetRequestID(ctx)
	payload := fhir_dto.NewConsentUpdatePayload(request)
	c.Log.Info("consentFhirClient.UpdateConsent called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPatientIDKey, payload.PatientID),
		zap.String(constvars.LoggingActionKey, string(payload.Action)),
	)
	defer c.finish(metrics.OperationUpdateConsent, requestID, start, &result)

	statusCode, body, err := c.send(ctx, metrics.OperationUpdateConsent, constvars.MethodPost, c.BaseUrl, payload)
	if err != nil {
		return c.outcome("consentFhirClient.UpdateConsent", requestID, err)
	}

	c.Log.Info("consentFhirClient.UpdateConsent succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.Int(constvars.LoggingStatusCodeKey, statusCode),
	)
	return &contracts.ConsentResult{StatusCode: statusCode, Body: body}
}

// send performs one authenticated attempt. Any status below 500 with a JSON body is
// a success and the body is returned untouched; everything else is an error.
func (c *consentFhirClient) send(ctx context.Context, operation, method, endpoint string, payload interface{}) (int, json.RawMessage, error) {
	authResult, err := c.AuthProvider.Auth(ctx)
	if err != nil {
		return 0, nil, err
	}
	if authResult == nil || authResult.AccessToken == "" {
		return 0, nil, exceptions.ErrEmptyAccessToken()
	}

	var requestBody io.Reader
	if payload != nil {
		requestJSON, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, exceptions.ErrCannotMarshalJSON(err)
		}
		requestBody = bytes.NewReader(requestJSON)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, requestBody)
	if err != nil {
		return 0, nil, exceptions.ErrCreateHTTPRequest(err)
	}
	req.Header.Set(constvars.HeaderAuthorization, constvars.HeaderBearerPrefix+authResult.AccessToken)
	if payload != nil {
		req.Header.Set(constvars.HeaderContentType, constvars.MIMEApplicationJSON)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, exceptions.ErrSendHTTPRequest(err)
	}
	defer resp.Body.Close()
	c.Metrics.ObserveUpstreamStatus(operation, resp.StatusCode)

	if resp.StatusCode == constvars.StatusUnauthorized {
		c.invalidateToken(ctx)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, exceptions.ErrReadResponseBody(err)
	}

	if resp.StatusCode >= constvars.StatusInternalServerError {
		return 0, nil, exceptions.ErrFHIRServer(resp.StatusCode, string(bodyBytes))
	}

	if !json.Valid(bodyBytes) {
		return 0, nil, exceptions.ErrInvalidResponseBody(nil, constvars.ResourceConsent)
	}

	return resp.StatusCode, json.RawMessage(bodyBytes), nil
}

// invalidateToken drops the provider's cached token so the next call fetches a fresh
// one. The 401 itself is still passed through to the caller.
func (c *consentFhirClient) invalidateToken(ctx context.Context) {
	invalidator, ok := c.AuthProvider.(contracts.TokenInvalidator)
	if !ok {
		return
	}
	if err := invalidator.InvalidateToken(ctx); err != nil {
		c.Log.Warn("consentFhirClient.invalidateToken error evicting access token",
			zap.String(constvars.LoggingRequestIDKey, utils.GetRequestID(ctx)),
			zap.Error(err),
		)
	}
}

func (c *consentFhirClient) outcome(caller, requestID string, err error) *contracts.ConsentResult {
	outcome := fhir_dto.NewExceptionOutcome(err)
	c.Log.Error(caller+" returned OperationOutcome",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingIssueDetailsKey, outcome.DetailsText()),
		zap.Error(err),
	)
	return &contracts.ConsentResult{Outcome: outcome}
}

// finish must be deferred directly so that recover sees a panic from the operation.
func (c *consentFhirClient) finish(operation, requestID string, start time.Time, result **contracts.ConsentResult) {
	if rec := recover(); rec != nil {
		*result = c.outcome("consentFhirClient."+operation, requestID, exceptions.ErrPanicRecovered(rec))
	}
	if *result == nil {
		*result = c.outcome("consentFhirClient."+operation, requestID, nil)
	}
	c.Metrics.ObserveConsent(operation, (*result).IsOutcome(), start)
}
