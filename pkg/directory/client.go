package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client is the capability-typed interface to the remote directory service.
// Implementations perform synchronous round trips; no retries, no caching.
type Client interface {
	// AuthenticateUser performs the raw credential check
	AuthenticateUser(ctx context.Context, username, password string) (*User, error)

	// GetUser looks up a user by name
	GetUser(ctx context.Context, username string) (*User, error)

	// GetGroup looks up a group by name
	GetGroup(ctx context.Context, groupName string) (*Group, error)

	// IsUserDirectGroupMember reports direct membership. A negative answer
	// is (false, nil); errors are reserved for remote failures.
	IsUserDirectGroupMember(ctx context.Context, username, groupName string) (bool, error)

	// IsUserNestedGroupMember reports transitive membership through
	// intermediate groups
	IsUserNestedGroupMember(ctx context.Context, username, groupName string) (bool, error)

	// GetGroupsForUser returns one page of groups the user is a direct
	// member of, starting at startIndex
	GetGroupsForUser(ctx context.Context, username string, startIndex, maxResults int) ([]Group, error)

	// GetGroupsForNestedUser returns one page of groups the user is a
	// direct or transitive member of
	GetGroupsForNestedUser(ctx context.Context, username string, startIndex, maxResults int) ([]Group, error)

	// CreateSession authenticates the user and issues an SSO token bound
	// to the supplied validation factors
	CreateSession(ctx context.Context, username, password string, factors []ValidationFactor) (string, error)

	// ValidateSession checks that the token is still valid when presented
	// with the same validation factors it was bound to
	ValidateSession(ctx context.Context, token string, factors []ValidationFactor) error

	// FindUserFromSession resolves the user that owns the SSO token
	FindUserFromSession(ctx context.Context, token string) (*User, error)

	// InvalidateSession terminates the SSO session for the token
	InvalidateSession(ctx context.Context, token string) error
}

const restBasePath = "/rest/usermanagement/1"

// RESTClientConfig holds the settings for the REST client
type RESTClientConfig struct {
	// BaseURL is the root URL of the remote directory service
	BaseURL string

	// ApplicationName and ApplicationPassword authenticate this host
	// application against the directory service (HTTP basic auth)
	ApplicationName     string
	ApplicationPassword string

	// Timeout bounds a single round trip; zero means no client timeout
	Timeout time.Duration
}

// RESTClient implements Client against the remote user-management
// REST API
type RESTClient struct {
	baseURL     string
	appName     string
	appPassword string
	httpClient  *http.Client
}

var _ Client = (*RESTClient)(nil)

// NewRESTClient creates a REST client for the remote directory service.
// The transport is instrumented with otelhttp so remote round trips show
// up in traces.
func NewRESTClient(cfg RESTClientConfig) *RESTClient {
	return &RESTClient{
		baseURL:     cfg.BaseURL,
		appName:     cfg.ApplicationName,
		appPassword: cfg.ApplicationPassword,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// errorResponse is the error body shape returned by the remote service
type errorResponse struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// sessionResponse is returned by the session endpoints
type sessionResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

// groupsResponse is returned by the paginated group enumeration endpoints
type groupsResponse struct {
	Groups []Group `json:"groups"`
}

// passwordBody is the credential payload for the authentication endpoint
type passwordBody struct {
	Value string `json:"value"`
}

// sessionRequest is the payload for session creation and validation
type sessionRequest struct {
	Username          string             `json:"username,omitempty"`
	Password          string             `json:"password,omitempty"`
	ValidationFactors []ValidationFactor `json:"validation-factors"`
}

// AuthenticateUser performs the raw credential check
func (c *RESTClient) AuthenticateUser(ctx context.Context, username, password string) (*User, error) {
	q := url.Values{"username": {username}}
	var user User
	err := c.do(ctx, http.MethodPost, "/authentication", q, passwordBody{Value: password}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser looks up a user by name
func (c *RESTClient) GetUser(ctx context.Context, username string) (*User, error) {
	q := url.Values{"username": {username}}
	var user User
	if err := c.do(ctx, http.MethodGet, "/user", q, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetGroup looks up a group by name
func (c *RESTClient) GetGroup(ctx context.Context, groupName string) (*Group, error) {
	q := url.Values{"groupname": {groupName}}
	var group Group
	if err := c.do(ctx, http.MethodGet, "/group", q, nil, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// IsUserDirectGroupMember reports direct membership
func (c *RESTClient) IsUserDirectGroupMember(ctx context.Context, username, groupName string) (bool, error) {
	return c.isMember(ctx, "/group/user/direct", username, groupName)
}

// IsUserNestedGroupMember reports transitive membership
func (c *RESTClient) IsUserNestedGroupMember(ctx context.Context, username, groupName string) (bool, error) {
	return c.isMember(ctx, "/group/user/nested", username, groupName)
}

func (c *RESTClient) isMember(ctx context.Context, path, username, groupName string) (bool, error) {
	q := url.Values{"groupname": {groupName}, "username": {username}}
	err := c.do(ctx, http.MethodGet, path, q, nil, nil)
	if err == nil {
		return true, nil
	}
	// a membership that does not exist is an answer, not a failure
	if isReason(err, reasonMembershipNotFound) || isReason(err, reasonUserNotFound) {
		return false, nil
	}
	return false, err
}

// GetGroupsForUser returns one page of direct group memberships
func (c *RESTClient) GetGroupsForUser(ctx context.Context, username string, startIndex, maxResults int) ([]Group, error) {
	return c.groupsPage(ctx, "/user/group/direct", username, startIndex, maxResults)
}

// GetGroupsForNestedUser returns one page of direct and transitive group
// memberships
func (c *RESTClient) GetGroupsForNestedUser(ctx context.Context, username string, startIndex, maxResults int) ([]Group, error) {
	return c.groupsPage(ctx, "/user/group/nested", username, startIndex, maxResults)
}

func (c *RESTClient) groupsPage(ctx context.Context, path, username string, startIndex, maxResults int) ([]Group, error) {
	q := url.Values{
		"username":    {username},
		"start-index": {strconv.Itoa(startIndex)},
		"max-results": {strconv.Itoa(maxResults)},
		"expand":      {"group"},
	}
	var resp groupsResponse
	if err := c.do(ctx, http.MethodGet, path, q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Groups, nil
}

// CreateSession authenticates the user and issues an SSO token
func (c *RESTClient) CreateSession(ctx context.Context, username, password string, factors []ValidationFactor) (string, error) {
	body := sessionRequest{
		Username:          username,
		Password:          password,
		ValidationFactors: factors,
	}
	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, "/session", nil, body, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// ValidateSession checks that the token is still valid for the factors
func (c *RESTClient) ValidateSession(ctx context.Context, token string, factors []ValidationFactor) error {
	body := sessionRequest{ValidationFactors: factors}
	return c.do(ctx, http.MethodPost, "/session/"+url.PathEscape(token), nil, body, nil)
}

// FindUserFromSession resolves the user owning the SSO token
func (c *RESTClient) FindUserFromSession(ctx context.Context, token string) (*User, error) {
	var resp sessionResponse
	if err := c.do(ctx, http.MethodGet, "/session/"+url.PathEscape(token), nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, fmt.Errorf("%w: session response carried no user", ErrOperationFailed)
	}
	return resp.User, nil
}

// InvalidateSession terminates the SSO session for the token
func (c *RESTClient) InvalidateSession(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodDelete, "/session/"+url.PathEscape(token), nil, nil, nil)
}

// do performs a single round trip and decodes the response into out when
// out is non-nil. Errors are classified onto the package sentinels.
func (c *RESTClient) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + restBasePath + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", ErrOperationFailed, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrOperationFailed, err)
	}
	req.SetBasicAuth(c.appName, c.appPassword)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOperationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrOperationFailed, err)
		}
		return nil
	}

	var errBody errorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	_ = json.Unmarshal(raw, &errBody)
	return classify(resp.StatusCode, errBody)
}

// classifiedError pairs a sentinel with the remote reason code so that
// membership lookups can tell "not a member" apart from real failures
type classifiedError struct {
	sentinel error
	reason   string
	message  string
}

func (e *classifiedError) Error() string {
	if e.message != "" {
		return fmt.Sprintf("%v: %s", e.sentinel, e.message)
	}
	return e.sentinel.Error()
}

func (e *classifiedError) Unwrap() error { return e.sentinel }

func isReason(err error, reason string) bool {
	ce, ok := err.(*classifiedError)
	return ok && ce.reason == reason
}

// classify maps an HTTP status and error body onto the failure taxonomy
func classify(status int, body errorResponse) error {
	ce := &classifiedError{reason: body.Reason, message: body.Message}

	switch {
	case status == http.StatusUnauthorized:
		ce.sentinel = ErrInvalidAuthentication
	case status == http.StatusForbidden:
		if body.Reason == reasonApplicationDenied {
			ce.sentinel = ErrApplicationAccessDenied
		} else {
			ce.sentinel = ErrApplicationPermission
		}
	case status == http.StatusNotFound:
		switch body.Reason {
		case reasonGroupNotFound:
			ce.sentinel = ErrGroupNotFound
		case reasonInvalidSSOToken:
			ce.sentinel = ErrInvalidToken
		case reasonMembershipNotFound:
			ce.sentinel = ErrUserNotFound
		default:
			ce.sentinel = ErrUserNotFound
		}
	case status == http.StatusBadRequest:
		switch body.Reason {
		case reasonExpiredCredential:
			ce.sentinel = ErrExpiredCredential
		case reasonInactiveAccount:
			ce.sentinel = ErrInactiveAccount
		case reasonInvalidUserAuth:
			ce.sentinel = ErrInvalidAuthentication
		case reasonInvalidSSOToken:
			ce.sentinel = ErrInvalidToken
		default:
			ce.sentinel = ErrOperationFailed
		}
	default:
		ce.sentinel = ErrOperationFailed
	}

	return ce
}
