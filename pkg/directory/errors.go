package directory

import "errors"

// Failure classification for remote directory calls. The client maps every
// non-success response onto exactly one of these sentinels so callers can
// branch with errors.Is instead of inspecting transport details.
var (
	// ErrUserNotFound indicates the remote service has no such user
	ErrUserNotFound = errors.New("directory: user not found")

	// ErrGroupNotFound indicates the remote service has no such group
	ErrGroupNotFound = errors.New("directory: group not found")

	// ErrExpiredCredential indicates the user's password must be changed
	ErrExpiredCredential = errors.New("directory: credential expired")

	// ErrInactiveAccount indicates the remote account is disabled
	ErrInactiveAccount = errors.New("directory: account inactive")

	// ErrApplicationPermission indicates the application is not permitted
	// to perform the requested operation on the remote service
	ErrApplicationPermission = errors.New("directory: application permission denied")

	// ErrInvalidAuthentication indicates the application credentials or the
	// supplied user credentials were rejected by the remote service
	ErrInvalidAuthentication = errors.New("directory: invalid authentication")

	// ErrInvalidToken indicates the SSO token is unknown, expired or was
	// presented with different validation factors than it was bound to
	ErrInvalidToken = errors.New("directory: invalid SSO token")

	// ErrApplicationAccessDenied indicates the user is not allowed to
	// authenticate against this application on the remote service
	ErrApplicationAccessDenied = errors.New("directory: application access denied")

	// ErrOperationFailed indicates an infrastructure failure: transport
	// error, malformed response or a remote 5xx
	ErrOperationFailed = errors.New("directory: operation failed")
)

// remote response reason codes, as returned in the error body
const (
	reasonUserNotFound       = "USER_NOT_FOUND"
	reasonGroupNotFound      = "GROUP_NOT_FOUND"
	reasonMembershipNotFound = "MEMBERSHIP_NOT_FOUND"
	reasonExpiredCredential  = "EXPIRED_CREDENTIAL"
	reasonInactiveAccount    = "INACTIVE_ACCOUNT"
	reasonInvalidUserAuth    = "INVALID_USER_AUTHENTICATION"
	reasonInvalidSSOToken    = "INVALID_SSO_TOKEN"
	reasonApplicationDenied  = "APPLICATION_ACCESS_DENIED"
)
