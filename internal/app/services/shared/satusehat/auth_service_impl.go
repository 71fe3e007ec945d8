package satusehat

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"consent-service/internal/app/contracts"
	"consent-service/internal/app/services/shared/metrics"
	"consent-service/internal/pkg/constvars"
	"consent-service/internal/pkg/exceptions"
	"consent-service/internal/pkg/utils"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	tokenSourceCache  = "cache"
	tokenSourceRemote = "remote"
	tokenSourceError  = "error"
)

var _ contracts.TokenInvalidator = (*authService)(nil)

type AuthServiceConfig struct {
	AuthUrl      string
	ClientID     string
	ClientSecret string
}

type authService struct {
	cfg        AuthServiceConfig
	httpClient *http.Client
	cache      contracts.RedisRepository
	metrics    *metrics.Metrics
	log        *zap.Logger
}

// NewAuthService builds the SatuSehat client credentials provider. cache may be nil,
// in which case every call goes to the token endpoint.
func NewAuthService(
	cfg AuthServiceConfig,
	httpClient *http.Client,
	cache contracts.RedisRepository,
	metrics *metrics.Metrics,
	logger *zap.Logger,
) contracts.AuthProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authService{
		cfg:        cfg,
		httpClient: httpClient,
		cache:      cache,
		metrics:    metrics,
		log:        logger,
	}
}

func (s *authService) Auth(ctx context.Context) (*contracts.AuthResult, error) {
	requestID := utils.GetRequestID(ctx)
	cacheKey := fmt.Sprintf(constvars.SatusehatTokenCacheKeyFormat, s.cfg.ClientID)

	if cached := s.getCachedToken(ctx, cacheKey); cached != nil {
		s.metrics.IncrementToken(tokenSourceCache)
		s.log.Debug("authService.Auth served token from cache",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingCacheKey, cacheKey),
		)
		return cached, nil
	}

	result, err := s.requestToken(ctx)
	if err != nil {
		s.metrics.IncrementToken(tokenSourceError)
		s.log.Error("authService.Auth error requesting access token",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingClientIDKey, s.cfg.ClientID),
			zap.Error(err),
		)
		return nil, err
	}
	s.metrics.IncrementToken(tokenSourceRemote)

	s.cacheToken(ctx, cacheKey, result)

	s.log.Info("authService.Auth succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingClientIDKey, s.cfg.ClientID),
	)
	return result, nil
}

// InvalidateToken evicts the cached token for the configured client.
func (s *authService) InvalidateToken(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}

	cacheKey := fmt.Sprintf(constvars.SatusehatTokenCacheKeyFormat, s.cfg.ClientID)
	err := s.cache.Delete(ctx, cacheKey)
	if err != nil {
		return err
	}

	s.log.Info("authService.InvalidateToken evicted cached token",
		zap.String(constvars.LoggingRequestIDKey, utils.GetRequestID(ctx)),
		zap.String(constvars.LoggingCacheKey, cacheKey),
	)
	return nil
}

func (s *authService) requestToken(ctx context.Context) (*contracts.AuthResult, error) {
	endpoint := fmt.Sprintf("%s%s?%s=%s",
		strings.TrimRight(s.cfg.AuthUrl, "/"),
		constvars.SatusehatAccessTokenPath,
		constvars.SatusehatGrantTypeParam,
		constvars.SatusehatGrantClientCredentials,
	)

	form := url.Values{}
	form.Set(constvars.SatusehatFormClientID, s.cfg.ClientID)
	form.Set(constvars.SatusehatFormClientSecret, s.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, constvars.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, exceptions.ErrCreateHTTPRequest(err)
	}
	req.Header.Set(constvars.HeaderContentType, constvars.MIMEApplicationForm)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, exceptions.ErrSendHTTPRequest(err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, exceptions.ErrReadResponseBody(err)
	}

	if resp.StatusCode != constvars.StatusOK {
		return nil, exceptions.ErrTokenRequestFailed(resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	result := new(contracts.AuthResult)
	err = json.Unmarshal(bodyBytes, result)
	if err != nil {
		return nil, exceptions.ErrInvalidResponseBody(err, constvars.SatusehatAccessTokenPath)
	}
	if result.AccessToken == "" {
		return nil, exceptions.ErrEmptyAccessToken()
	}
	return result, nil
}

func (s *authService) getCachedToken(ctx context.Context, cacheKey string) *contracts.AuthResult {
	if s.cache == nil {
		return nil
	}

	data, err := s.cache.Get(ctx, cacheKey)
	if err != nil {
		s.log.Warn("authService.getCachedToken error reading cache",
			zap.String(constvars.LoggingRequestIDKey, utils.GetRequestID(ctx)),
			zap.String(constvars.LoggingCacheKey, cacheKey),
			zap.Error(err),
		)
		return nil
	}
	if data == "" {
		return nil
	}

	cached := new(contracts.AuthResult)
	if err := json.Unmarshal([]byte(data), cached); err != nil || cached.AccessToken == "" {
		return nil
	}
	return cached
}

func (s *authService) cacheToken(ctx context.Context, cacheKey string, result *contracts.AuthResult) {
	if s.cache == nil {
		return
	}

	ttl := tokenTTL(result.ExpiresIn)
	if ttl <= 0 {
		return
	}

	if err := s.cache.Set(ctx, cacheKey, result, ttl); err != nil {
		s.log.Warn("authService.cacheToken error writing cache",
			zap.String(constvars.LoggingRequestIDKey, utils.GetRequestID(ctx)),
			zap.String(constvars.LoggingCacheKey, cacheKey),
			zap.Error(err),
		)
	}
}

// tokenTTL turns expires_in (seconds, sent as a string by SatuSehat) into a cache TTL
// with a safety margin. Unparseable or too short lifetimes yield 0.
func tokenTTL(expiresIn string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(expiresIn))
	if err != nil {
		return 0
	}
	seconds -= constvars.SatusehatTokenExpiryMarginSecond
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
