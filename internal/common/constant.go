// Package common contains constants and sentinel errors shared by the
// propscan client and the development backend.
package common

// Header names exchanged with the backend.
const (
	AuthorizationHeaderName = "Authorization"
	AppSourceHeaderName     = "X-App-Source"
	BearerPrefix            = "Bearer "
)

// Local store keys. Per-user values are scoped as <base>_<userID>.
const (
	KeyAuthToken     = "auth_token"
	KeyCurrentUserID = "current_user_id"
	KeyScanBalance   = "user_scan_balance"
	KeyNewAccount    = "is_new_account"
)

// DefaultScanLimit applies when the backend omits the plan limit.
const DefaultScanLimit = 50
