package common

const (
	// AccessTokenHeaderName is the gRPC metadata key used to carry the
	// access token when the "authorization" key is not set.
	AccessTokenHeaderName = "access_token"

	// AuthorizationHeaderName carries "Bearer <token>" over HTTP and gRPC.
	AuthorizationHeaderName = "authorization"

	// TenantHeaderName carries an explicit tenant hint (subdomain or "id:<n>").
	TenantHeaderName = "x-tenant"

	// RequestIDHeaderName is echoed back on every HTTP response.
	RequestIDHeaderName = "X-Request-ID"
)
