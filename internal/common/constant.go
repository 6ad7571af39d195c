package common

// AuthorizationHeaderName is the HTTP header carrying the bearer token on
// identity-gated requests.
const AuthorizationHeaderName = "Authorization"
