package constvars

const (
	SatusehatAccessTokenPath         = "/accesstoken"
	SatusehatGrantTypeParam          = "grant_type"
	SatusehatGrantClientCredentials  = "client_credentials"
	SatusehatFormClientID            = "client_id"
	SatusehatFormClientSecret        = "client_secret"
	SatusehatTokenCacheKeyFormat     = "satusehat:token:%s"
	SatusehatTokenExpiryMarginSecond = 60
)
