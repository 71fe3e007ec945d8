package consents

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"consent-service/internal/app/contracts"
	"consent-service/internal/app/services/shared/metrics"
	"consent-service/internal/pkg/constvars"
	"consent-service/internal/pkg/exceptions"
	"consent-service/internal/pkg/fhir_dto"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockAuthProvider struct {
	mock.Mock
}

func (m *mockAuthProvider) Auth(ctx context.Context) (*contracts.AuthResult, error) {
	args := m.Called(ctx)
	result, _ := args.Get(0).(*contracts.AuthResult)
	return result, args.Error(1)
}

type panickingAuthProvider struct{}

func (panickingAuthProvider) Auth(context.Context) (*contracts.AuthResult, error) {
	panic("auth provider exploded")
}

type capturedRequest struct {
	Method        string
	Path          string
	PatientIDArg  string
	Authorization string
	ContentType   string
	Body          []byte
}

type requestRecorder struct {
	mu       sync.Mutex
	captured capturedRequest
}

func (r *requestRecorder) last() capturedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.captured
}

func newConsentServer(t *testing.T, status int, body string) (*httptest.Server, *requestRecorder) {
	t.Helper()
	recorder := new(requestRecorder)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestBody, _ := io.ReadAll(r.Body)

		recorder.mu.Lock()
		recorder.captured = capturedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			PatientIDArg:  r.URL.Query().Get("patient_id"),
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
			Body:          requestBody,
		}
		recorder.mu.Unlock()

		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, recorder
}

func authOK() *mockAuthProvider {
	provider := new(mockAuthProvider)
	provider.On("Auth", mock.Anything).Return(&contracts.AuthResult{AccessToken: "tok-1"}, nil)
	return provider
}

func newTestClient(baseUrl string, provider contracts.AuthProvider, m *metrics.Metrics) contracts.ConsentFhirClient {
	return NewConsentFhirClient(baseUrl, provider, nil, m, zap.NewNop())
}

func assertExceptionOutcome(t *testing.T, result *contracts.ConsentResult, detail string) {
	t.Helper()
	require.NotNil(t, result)
	require.True(t, result.IsOutcome(), "expected an OperationOutcome")
	assert.Nil(t, result.Body)
	assert.Equal(t, constvars.ResourceOperationOutcome, result.Outcome.ResourceType)
	require.Len(t, result.Outcome.Issue, 1)
	assert.Equal(t, constvars.FhirIssueCodeException, result.Outcome.Issue[0].Code)
	assert.Equal(t, constvars.FhirIssueSeverityError, result.Outcome.Issue[0].Severity)
	if detail != "" {
		assert.Equal(t, detail, result.Outcome.DetailsText())
	}
}

func TestConsentFhirClient_GetConsent(t *testing.T) {
	t.Run("sends bearer token and patient_id", func(t *testing.T) {
		server, recorder := newConsentServer(t, http.StatusOK, `{"resourceType":"Consent","id":"C1"}`)
		provider := authOK()

		result := newTestClient(server.URL+"/", provider, nil).GetConsent(context.Background(), "P123")

		require.False(t, result.IsOutcome())
		assert.Equal(t, http.StatusOK, result.StatusCode)
		assert.Equal(t, http.MethodGet, recorder.last().Method)
		assert.Equal(t, "/Consent", recorder.last().Path)
		assert.Equal(t, "P123", recorder.last().PatientIDArg)
		assert.Equal(t, "Bearer tok-1", recorder.last().Authorization)
		assert.Empty(t, recorder.last().Body)
		provider.AssertNumberOfCalls(t, "Auth", 1)
	})

	t.Run("patient id is query escaped", func(t *testing.T) {
		server, recorder := newConsentServer(t, http.StatusOK, `{}`)

		newTestClient(server.URL, authOK(), nil).GetConsent(context.Background(), "P 1&x=2")

		assert.Equal(t, "P 1&x=2", recorder.last().PatientIDArg)
	})

	t.Run("503 becomes an OperationOutcome with the body text", func(t *testing.T) {
		server, _ := newConsentServer(t, http.StatusServiceUnavailable, "db down")

		result := newTestClient(server.URL, authOK(), nil).GetConsent(context.Background(), "P123")

		assertExceptionOutcome(t, result, "db down")
		raw, err := result.JSON()
		require.NoError(t, err)
		assert.JSONEq(t,
			`{"resourceType":"OperationOutcome","issue":[{"code":"exception","severity":"error","details":{"text":"db down"}}]}`,
			string(raw),
		)
	})

	t.Run("500 with empty body falls back to unknown error", func(t *testing.T) {
		server, _ := newConsentServer(t, http.StatusInternalServerError, "")

		result := newTestClient(server.URL, authOK(), nil).GetConsent(context.Background(), "P123")

		assertExceptionOutcome(t, result, constvars.FhirUnknownErrorMessage)
	})

	t.Run("404 body is passed through untouched", func(t *testing.T) {
		body := `{"resourceType":"OperationOutcome","issue":[{"severity":"error","code":"not-found","diagnostics":"no consent"}]}`
		server, _ := newConsentServer(t, http.StatusNotFound, body)

		result := newTestClient(server.URL, authOK(), nil).GetConsent(context.Background(), "P123")

		require.False(t, result.IsOutcome())
		assert.Equal(t, http.StatusNotFound, result.StatusCode)
		assert.Equal(t, body, string(result.Body))
	})

	t.Run("auth failure message is the issue text", func(t *testing.T) {
		server, recorder := newConsentServer(t, http.StatusOK, `{}`)
		provider := new(mockAuthProvider)
		provider.On("Auth", mock.Anything).Return(nil, errors.New("X"))

		result := newTestClient(server.URL, provider, nil).GetConsent(context.Background(), "P123")

		assertExceptionOutcome(t, result, "X")
		assert.Empty(t, recorder.last().Method, "no request may be sent without a token")
	})

	t.Run("auth failure without message", func(t *testing.T) {
		server, _ := newConsentServer(t, http.StatusOK, `{}`)
		provider := new(mockAuthProvider)
		provider.On("Auth", mock.Anything).Return(nil, errors.New(""))

		result := newTestClient(server.URL, provider, nil).GetConsent(context.Background(), "P123")

		assertExceptionOutcome(t, result, constvars.FhirUnknownErrorMessage)
	})

	t.Run("missing token bundle", func(t *testing.T) {
		server, _ := newConsentServer(t, http.StatusOK, `{}`)
		provider := new(mockAuthProvider)
		provider.On("Auth", mock.Anything).Return(nil, nil)

		result := newTestClient(server.URL, provider, nil).GetConsent(context.Background(), "P123")

		assertExceptionOutcome(t, result, constvars.ErrDevEmptyAccessToken)
	})

	t.Run("custom auth error uses its dev message", func(t *testing.T) {
		server, _ := newConsentServer(t, http.StatusOK, `{}`)
		provider := new(mockAuthProvider)
		provider.On("Auth", mock.Anything).Return(nil, exceptions.ErrTokenRequestFailed(401, "invalid client"))

		result := newTestClient(server.URL, provider, nil).GetConsent(context.Background(), "P123")

		assertExceptionOutcome(t, result, "invalid client")
	})

	t.Run("transport failure", func(t *testing.T) {
		server, _ := newConsentServer(t, http.StatusOK, `{}`)
		server.Close()

		result := newTestClient(server.URL, authOK(), nil).GetConsent(context.Background(), "P123")

		assertExceptionOutcome(t, result, "")
		assert.Contains(t, result.Outcome.DetailsText(), constvars.ErrDevSendHTTPRequest)
	})

	t.Run("malformed success body", func(t *testing.T) {
		server, _ := newConsentServer(t, http.StatusOK, `<html>oops</html>`)

		result := newTestClient(server.URL, authOK(), nil).GetConsent(context.Background(), "P123")

		assertExceptionOutcome(t, result, "response body from Consent is not valid JSON")
	})

	t.Run("panic in a collaborator is recovered", func(t *testing.T) {
		server, _ := newConsentServer(t, http.StatusOK, `{}`)

		var result *contracts.ConsentResult
		assert.NotPanics(t, func() {
			result = newTestClient(server.URL, panickingAuthProvider{}, nil).GetConsent(context.Background(), "P123")
		})
		assertExceptionOutcome(t, result, "recovered from panic: auth provider exploded")
	})

	t.Run("cancelled context", func(t *testing.T) {
		server, _ := newConsentServer(t, http.StatusOK, `{}`)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result := newTestClient(server.URL, authOK(), nil).GetConsent(ctx, "P123")

		assertExceptionOutcome(t, result, "")
	})
}

func TestConsentFhirClient_UpdateConsent(t *testing.T) {
	request := &fhir_dto.ConsentUpdateRequest{
		PatientID: "P123",
		Action:    fhir_dto.ConsentActionOptIn,
		Agent:     "Dr. Ada",
	}

	t.Run("returns the upstream body verbatim", func(t *testing.T) {
		server, recorder := newConsentServer(t, http.StatusOK, `{"resourceType":"Consent","id":"C1"}`)

		result := newTestClient(server.URL, authOK(), nil).UpdateConsent(context.Background(), request)

		require.False(t, result.IsOutcome())
		assert.Equal(t, `{"resourceType":"Consent","id":"C1"}`, string(result.Body))
		assert.Equal(t, http.MethodPost, recorder.last().Method)
		assert.Equal(t, "/Consent", recorder.last().Path)
		assert.Equal(t, "Bearer tok-1", recorder.last().Authorization)
		assert.Equal(t, "application/json", recorder.last().ContentType)
	})

	t.Run("body carries patient_id and patientId", func(t *testing.T) {
		server, recorder := newConsentServer(t, http.StatusCreated, `{"resourceType":"Consent"}`)

		newTestClient(server.URL, authOK(), nil).UpdateConsent(context.Background(), request)

		var body map[string]string
		require.NoError(t, json.Unmarshal(recorder.last().Body, &body))
		assert.Equal(t, "P123", body["patient_id"])
		assert.Equal(t, body["patient_id"], body["patientId"])
		assert.Equal(t, "OPTIN", body["action"])
		assert.Equal(t, "Dr. Ada", body["agent"])
		assert.Len(t, body, 4)
	})

	t.Run("invalid action is forwarded and the 400 passed through", func(t *testing.T) {
		body := `{"resourceType":"OperationOutcome","issue":[{"severity":"error","code":"invalid"}]}`
		server, recorder := newConsentServer(t, http.StatusBadRequest, body)

		result := newTestClient(server.URL, authOK(), nil).UpdateConsent(context.Background(), &fhir_dto.ConsentUpdateRequest{
			PatientID: "P123",
			Action:    "MAYBE",
		})

		require.False(t, result.IsOutcome())
		assert.Equal(t, http.StatusBadRequest, result.StatusCode)
		assert.Equal(t, body, string(result.Body))
		assert.Contains(t, string(recorder.last().Body), `"action":"MAYBE"`)
	})

	t.Run("502 becomes an OperationOutcome", func(t *testing.T) {
		server, _ := newConsentServer(t, http.StatusBadGateway, "upstream gateway error")

		result := newTestClient(server.URL, authOK(), nil).UpdateConsent(context.Background(), request)

		assertExceptionOutcome(t, result, "upstream gateway error")
	})

	t.Run("nil request still resolves", func(t *testing.T) {
		server, recorder := newConsentServer(t, http.StatusBadRequest, `{"resourceType":"OperationOutcome"}`)

		result := newTestClient(server.URL, authOK(), nil).UpdateConsent(context.Background(), nil)

		require.False(t, result.IsOutcome())
		assert.Contains(t, string(recorder.last().Body), `"patient_id":""`)
	})
}

func TestConsentFhirClient_Metrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	okServer, _ := newConsentServer(t, http.StatusOK, `{}`)
	downServer, _ := newConsentServer(t, http.StatusServiceUnavailable, "db down")

	newTestClient(okServer.URL, authOK(), m).GetConsent(context.Background(), "P1")
	newTestClient(downServer.URL, authOK(), m).GetConsent(context.Background(), "P1")
	newTestClient(downServer.URL, authOK(), m).UpdateConsent(context.Background(), &fhir_dto.ConsentUpdateRequest{PatientID: "P1"})

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ConsentRequests.WithLabelValues(metrics.OperationGetConsent, metrics.ResultPassthrough)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ConsentRequests.WithLabelValues(metrics.OperationGetConsent, metrics.ResultOutcome)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ConsentRequests.WithLabelValues(metrics.OperationUpdateConsent, metrics.ResultOutcome)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.UpstreamStatuses.WithLabelValues(metrics.OperationUpdateConsent, "5xx")))
}

func TestConsentFhirClient_ConcurrentCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		w.Write([]byte(`{"resourceType":"Consent","patient":"` + r.URL.Query().Get("patient_id") + `"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, authOK(), nil)

	var wg sync.WaitGroup
	results := make([]*contracts.ConsentResult, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = client.GetConsent(context.Background(), string(rune('A'+i)))
		}(i)
	}
	wg.Wait()

	for i, result := range results {
		require.False(t, result.IsOutcome())
		assert.JSONEq(t, `{"resourceType":"Consent","patient":"`+string(rune('A'+i))+`"}`, string(result.Body))
	}
}

type invalidatingAuthProvider struct {
	mockAuthProvider
}

func (m *invalidatingAuthProvider) InvalidateToken(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func newInvalidatingAuthProvider(invalidateErr error) *invalidatingAuthProvider {
	provider := new(invalidatingAuthProvider)
	provider.On("Auth", mock.Anything).Return(&contracts.AuthResult{AccessToken: "tok-stale"}, nil)
	provider.On("InvalidateToken", mock.Anything).Return(invalidateErr)
	return provider
}

func TestConsentFhirClient_RejectedToken(t *testing.T) {
	t.Run("401 evicts the cached token and passes through", func(t *testing.T) {
		body := `{"resourceType":"OperationOutcome","issue":[{"severity":"error","code":"login"}]}`
		server, _ := newConsentServer(t, http.StatusUnauthorized, body)
		provider := newInvalidatingAuthProvider(nil)

		result := newTestClient(server.URL, provider, nil).GetConsent(context.Background(), "P123")

		require.False(t, result.IsOutcome())
		assert.Equal(t, http.StatusUnauthorized, result.StatusCode)
		assert.JSONEq(t, body, string(result.Body))
		provider.AssertCalled(t, "InvalidateToken", mock.Anything)
	})

	t.Run("eviction failure does not change the result", func(t *testing.T) {
		server, _ := newConsentServer(t, http.StatusUnauthorized, `{}`)
		provider := newInvalidatingAuthProvider(errors.New("redis down"))

		result := newTestClient(server.URL, provider, nil).UpdateConsent(context.Background(), &fhir_dto.ConsentUpdateRequest{
			PatientID: "P123",
			Action:    fhir_dto.ConsentActionOptOut,
			Agent:     "Dr. Ada",
		})

		require.False(t, result.IsOutcome())
		assert.Equal(t, http.StatusUnauthorized, result.StatusCode)
		provider.AssertNumberOfCalls(t, "InvalidateToken", 1)
	})

	t.Run("other statuses keep the token", func(t *testing.T) {
		server, _ := newConsentServer(t, http.StatusForbidden, `{}`)
		provider := newInvalidatingAuthProvider(nil)

		result := newTestClient(server.URL, provider, nil).GetConsent(context.Background(), "P123")

		assert.Equal(t, http.StatusForbidden, result.StatusCode)
		provider.AssertNotCalled(t, "InvalidateToken", mock.Anything)
	})
}

func TestConsentFhirClient_NilLogger(t *testing.T) {
	server, _ := newConsentServer(t, http.StatusOK, `{"resourceType":"Consent"}`)
	client := NewConsentFhirClient(server.URL, authOK(), nil, nil, nil)

	var result *contracts.ConsentResult
	assert.NotPanics(t, func() {
		result = client.GetConsent(context.Background(), "P123")
	})
	require.False(t, result.IsOutcome())
	assert.Equal(t, http.StatusOK, result.StatusCode)
}
