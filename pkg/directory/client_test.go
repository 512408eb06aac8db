package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.Handler) (*RESTClient, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewRESTClient(RESTClientConfig{
		BaseURL:             server.URL,
		ApplicationName:     "perimeter",
		ApplicationPassword: "secret",
		Timeout:             5 * time.Second,
	})
	return client, server
}

func writeErrorBody(w http.ResponseWriter, status int, reason, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Reason: reason, Message: message})
}

func TestRESTClientAuthenticateUser(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, restBasePath+"/authentication", r.URL.Path)
		assert.Equal(t, "alice", r.URL.Query().Get("username"))

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "perimeter", user)
		assert.Equal(t, "secret", pass)

		var body passwordBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hunter2", body.Value)

		json.NewEncoder(w).Encode(User{Name: "alice", DisplayName: "Alice", Active: true})
	}))
	defer server.Close()

	user, err := client.AuthenticateUser(context.Background(), "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Name)
	assert.True(t, user.Active)
}

func TestRESTClientErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		reason string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, "", ErrInvalidAuthentication},
		{"forbidden", http.StatusForbidden, "APPLICATION_PERMISSION", ErrApplicationPermission},
		{"forbidden without reason", http.StatusForbidden, "", ErrApplicationPermission},
		{"application denied", http.StatusForbidden, reasonApplicationDenied, ErrApplicationAccessDenied},
		{"user not found", http.StatusNotFound, reasonUserNotFound, ErrUserNotFound},
		{"group not found", http.StatusNotFound, reasonGroupNotFound, ErrGroupNotFound},
		{"invalid sso token", http.StatusNotFound, reasonInvalidSSOToken, ErrInvalidToken},
		{"expired credential", http.StatusBadRequest, reasonExpiredCredential, ErrExpiredCredential},
		{"inactive account", http.StatusBadRequest, reasonInactiveAccount, ErrInactiveAccount},
		{"invalid user authentication", http.StatusBadRequest, reasonInvalidUserAuth, ErrInvalidAuthentication},
		{"unrecognized bad request", http.StatusBadRequest, "SOMETHING_ELSE", ErrOperationFailed},
		{"server error", http.StatusInternalServerError, "", ErrOperationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeErrorBody(w, tt.status, tt.reason, "remote says no")
			}))
			defer server.Close()

			_, err := client.AuthenticateUser(context.Background(), "alice", "hunter2")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "remote says no")
		})
	}
}

func TestRESTClientMembershipNotFoundIsNegative(t *testing.T) {
	reasons := []string{reasonMembershipNotFound, reasonUserNotFound}

	for _, reason := range reasons {
		t.Run(reason, func(t *testing.T) {
			client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, restBasePath+"/group/user/direct", r.URL.Path)
				writeErrorBody(w, http.StatusNotFound, reason, "")
			}))
			defer server.Close()

			member, err := client.IsUserDirectGroupMember(context.Background(), "alice", "app-users")
			require.NoError(t, err)
			assert.False(t, member)
		})
	}
}

func TestRESTClientMembershipPositive(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "app-users", r.URL.Query().Get("groupname"))
		assert.Equal(t, "alice", r.URL.Query().Get("username"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	member, err := client.IsUserNestedGroupMember(context.Background(), "alice", "app-users")
	require.NoError(t, err)
	assert.True(t, member)
}

func TestRESTClientMembershipFailurePropagates(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorBody(w, http.StatusForbidden, "", "")
	}))
	defer server.Close()

	_, err := client.IsUserDirectGroupMember(context.Background(), "alice", "app-users")
	assert.ErrorIs(t, err, ErrApplicationPermission)
}

func TestRESTClientGroupsPage(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, restBasePath+"/user/group/direct", r.URL.Path)
		assert.Equal(t, "500", r.URL.Query().Get("start-index"))
		assert.Equal(t, "500", r.URL.Query().Get("max-results"))
		json.NewEncoder(w).Encode(groupsResponse{Groups: []Group{
			{Name: "dev", Active: true},
			{Name: "retired", Active: false},
		}})
	}))
	defer server.Close()

	groups, err := client.GetGroupsForUser(context.Background(), "alice", 500, 500)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "dev", groups[0].Name)
	assert.False(t, groups[1].Active)
}

func TestRESTClientSessionLifecycle(t *testing.T) {
	const token = "sso-token-123"

	mux := http.NewServeMux()
	mux.HandleFunc(restBasePath+"/session", func(w http.ResponseWriter, r *http.Request) {
		var req sessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice", req.Username)
		require.Len(t, req.ValidationFactors, 1)
		assert.Equal(t, "remote_address", req.ValidationFactors[0].Name)
		json.NewEncoder(w).Encode(sessionResponse{Token: token})
	})
	mux.HandleFunc(restBasePath+"/session/"+token, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			json.NewEncoder(w).Encode(sessionResponse{
				Token: token,
				User:  &User{Name: "alice", Active: true},
			})
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	client, server := newTestClient(mux)
	defer server.Close()

	ctx := context.Background()
	factors := []ValidationFactor{{Name: "remote_address", Value: "10.0.0.1"}}

	issued, err := client.CreateSession(ctx, "alice", "hunter2", factors)
	require.NoError(t, err)
	assert.Equal(t, token, issued)

	require.NoError(t, client.ValidateSession(ctx, token, factors))

	user, err := client.FindUserFromSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Name)

	require.NoError(t, client.InvalidateSession(ctx, token))
}

func TestRESTClientValidateSessionInvalidToken(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorBody(w, http.StatusNotFound, reasonInvalidSSOToken, "token expired")
	}))
	defer server.Close()

	err := client.ValidateSession(context.Background(), "stale", nil)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRESTClientFindUserFromSessionWithoutUser(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(sessionResponse{Token: "tok"})
	}))
	defer server.Close()

	_, err := client.FindUserFromSession(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrOperationFailed)
}

func TestRESTClientUnreachable(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := client.GetUser(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrOperationFailed)
}
