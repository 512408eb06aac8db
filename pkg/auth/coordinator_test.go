package auth

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/perimeter/pkg/directory"
)

// stubDirectory implements directory.Client with canned answers and call
// counts so tests can assert which remote operations ran
type stubDirectory struct {
	groupActive   bool
	groupErr      error
	member        bool
	memberErr     error
	user          *directory.User
	authErr       error
	groups        []directory.Group
	groupsErr     error
	sessionUser   *directory.User
	validateErr   error
	createdToken  string
	createErr     error
	invalidateErr error

	calls map[string]int
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{calls: make(map[string]int)}
}

func (s *stubDirectory) count(name string) { s.calls[name]++ }

func (s *stubDirectory) AuthenticateUser(ctx context.Context, username, password string) (*directory.User, error) {
	s.count("AuthenticateUser")
	if s.authErr != nil {
		return nil, s.authErr
	}
	if s.user != nil {
		return s.user, nil
	}
	return &directory.User{Name: username, Active: true}, nil
}

func (s *stubDirectory) GetUser(ctx context.Context, username string) (*directory.User, error) {
	s.count("GetUser")
	if s.user == nil {
		return nil, directory.ErrUserNotFound
	}
	return s.user, nil
}

func (s *stubDirectory) GetGroup(ctx context.Context, groupName string) (*directory.Group, error) {
	s.count("GetGroup")
	if s.groupErr != nil {
		return nil, s.groupErr
	}
	return &directory.Group{Name: groupName, Active: s.groupActive}, nil
}

func (s *stubDirectory) IsUserDirectGroupMember(ctx context.Context, username, groupName string) (bool, error) {
	s.count("IsUserDirectGroupMember")
	return s.member, s.memberErr
}

func (s *stubDirectory) IsUserNestedGroupMember(ctx context.Context, username, groupName string) (bool, error) {
	s.count("IsUserNestedGroupMember")
	return false, nil
}

func (s *stubDirectory) GetGroupsForUser(ctx context.Context, username string, start, max int) ([]directory.Group, error) {
	s.count("GetGroupsForUser")
	if s.groupsErr != nil {
		return nil, s.groupsErr
	}
	if start > 0 {
		return nil, nil
	}
	return s.groups, nil
}

func (s *stubDirectory) GetGroupsForNestedUser(ctx context.Context, username string, start, max int) ([]directory.Group, error) {
	s.count("GetGroupsForNestedUser")
	return nil, nil
}

func (s *stubDirectory) CreateSession(ctx context.Context, username, password string, factors []directory.ValidationFactor) (string, error) {
	s.count("CreateSession")
	return s.createdToken, s.createErr
}

func (s *stubDirectory) ValidateSession(ctx context.Context, token string, factors []directory.ValidationFactor) error {
	s.count("ValidateSession")
	return s.validateErr
}

func (s *stubDirectory) FindUserFromSession(ctx context.Context, token string) (*directory.User, error) {
	s.count("FindUserFromSession")
	if s.sessionUser == nil {
		return nil, directory.ErrInvalidToken
	}
	return s.sessionUser, nil
}

func (s *stubDirectory) InvalidateSession(ctx context.Context, token string) error {
	s.count("InvalidateSession")
	return s.invalidateErr
}

func (s *stubDirectory) totalCalls() int {
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestCoordinator(stub *stubDirectory) *Coordinator {
	gateway := directory.NewGateway(stub, directory.GatewayConfig{
		GroupName: "app-users",
		PageSize:  100,
	}, quietLogger(), nil)
	return NewCoordinator(gateway, quietLogger(), nil)
}

func TestAuthenticateSSOPassthrough(t *testing.T) {
	stub := newStubDirectory()
	coordinator := newTestCoordinator(stub)

	token := NewSSOToken("alice", []string{AuthorityAuthenticated}, "sso-token", "Alice")
	out, err := coordinator.Authenticate(context.Background(), token)

	require.NoError(t, err)
	// the credential was validated earlier in the request; it passes
	// through untouched and nothing hits the wire
	assert.Same(t, token, out)
	assert.Equal(t, 0, stub.totalCalls())
}

func TestAuthenticateGateRunsBeforeCredentialCheck(t *testing.T) {
	t.Run("group inactive", func(t *testing.T) {
		stub := newStubDirectory()
		stub.groupActive = false
		coordinator := newTestCoordinator(stub)

		_, err := coordinator.Authenticate(context.Background(), NewPasswordToken("alice", "hunter2", nil))
		assert.ErrorIs(t, err, ErrAuthorizationUnavailable)
		assert.Equal(t, 0, stub.calls["AuthenticateUser"])
	})

	t.Run("group lookup fails", func(t *testing.T) {
		stub := newStubDirectory()
		stub.groupErr = directory.ErrOperationFailed
		coordinator := newTestCoordinator(stub)

		_, err := coordinator.Authenticate(context.Background(), NewPasswordToken("alice", "hunter2", nil))
		assert.ErrorIs(t, err, ErrAuthorizationUnavailable)
		assert.Equal(t, 0, stub.calls["AuthenticateUser"])
	})

	t.Run("not a member", func(t *testing.T) {
		stub := newStubDirectory()
		stub.groupActive = true
		stub.member = false
		coordinator := newTestCoordinator(stub)

		_, err := coordinator.Authenticate(context.Background(), NewPasswordToken("alice", "hunter2", nil))
		assert.ErrorIs(t, err, ErrNotAuthorized)
		assert.Equal(t, 0, stub.calls["AuthenticateUser"])
	})

	t.Run("membership check fails", func(t *testing.T) {
		stub := newStubDirectory()
		stub.groupActive = true
		stub.memberErr = directory.ErrOperationFailed
		coordinator := newTestCoordinator(stub)

		// an indeterminate membership answer denies, it never allows
		_, err := coordinator.Authenticate(context.Background(), NewPasswordToken("alice", "hunter2", nil))
		assert.ErrorIs(t, err, ErrNotAuthorized)
		assert.Equal(t, 0, stub.calls["AuthenticateUser"])
	})
}

func TestAuthenticateSuccess(t *testing.T) {
	stub := newStubDirectory()
	stub.groupActive = true
	stub.member = true
	stub.groups = []directory.Group{
		{Name: "dev", Active: true},
		{Name: "ops", Active: true},
		{Name: "legacy", Active: false},
	}
	coordinator := newTestCoordinator(stub)

	token, err := coordinator.Authenticate(context.Background(), NewPasswordToken("alice", "hunter2", nil))
	require.NoError(t, err)

	assert.Equal(t, "alice", token.Username())
	assert.Equal(t, "hunter2", token.Password())
	assert.Equal(t, []string{AuthorityAuthenticated, "dev", "ops"}, token.Authorities())
	assert.False(t, token.HasSSOToken())
}

func TestAuthenticateCredentialFailureMapping(t *testing.T) {
	tests := []struct {
		name      string
		remoteErr error
		want      error
	}{
		{"user not found", directory.ErrUserNotFound, ErrIdentityNotFound},
		{"expired credential", directory.ErrExpiredCredential, ErrCredentialsExpired},
		{"inactive account", directory.ErrInactiveAccount, ErrAccountInactive},
		{"operation failed", directory.ErrOperationFailed, ErrDirectoryUnavailable},
		{"permission denied", directory.ErrApplicationPermission, ErrDirectoryUnavailable},
		{"invalid authentication", directory.ErrInvalidAuthentication, ErrDirectoryUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newStubDirectory()
			stub.groupActive = true
			stub.member = true
			stub.authErr = tt.remoteErr
			coordinator := newTestCoordinator(stub)

			_, err := coordinator.Authenticate(context.Background(), NewPasswordToken("alice", "wrong", nil))
			assert.ErrorIs(t, err, tt.want)
			// authority enumeration is pointless after a failed credential
			assert.Equal(t, 0, stub.calls["GetGroupsForUser"])
		})
	}
}

func TestAuthenticateAuthorityEnumerationIsBestEffort(t *testing.T) {
	stub := newStubDirectory()
	stub.groupActive = true
	stub.member = true
	stub.groupsErr = directory.ErrOperationFailed
	coordinator := newTestCoordinator(stub)

	// a failed enumeration still yields the authenticated sentinel
	token, err := coordinator.Authenticate(context.Background(), NewPasswordToken("alice", "hunter2", nil))
	require.NoError(t, err)
	assert.Equal(t, []string{AuthorityAuthenticated}, token.Authorities())
}
