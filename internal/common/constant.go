package common

// AuthorizationHeaderName carries the bearer access token on protected requests.
const AuthorizationHeaderName = "Authorization"

// FirmHeaderName selects the Logo firm the request operates on. Required on
// every /api path except the auth endpoints.
const FirmHeaderName = "x-firm-no"

// TransactionIDHeaderName echoes the audit transaction id back to the caller.
const TransactionIDHeaderName = "X-Transaction-ID"
