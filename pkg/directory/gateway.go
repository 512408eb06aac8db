package directory

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/perimeter/pkg/observability"
)

// DefaultPageSize is the number of groups fetched per enumeration page
const DefaultPageSize = 500

// GatewayConfig holds the authorization gate settings
type GatewayConfig struct {
	// GroupName is the group whose active membership gates access to the
	// host application
	GroupName string

	// NestedGroups enables transitive membership through intermediate
	// groups
	NestedGroups bool

	// PageSize overrides DefaultPageSize for group enumeration
	PageSize int
}

// Gateway answers authorization questions against the remote directory.
// IsGroupActive, IsGroupMember and AuthoritiesForUser fail closed: any
// remote failure is logged and reported as a negative or best-effort
// result, never raised. Only AuthenticateUser surfaces classified errors,
// and only because the authentication coordinator needs to tell the
// failure kinds apart.
type Gateway struct {
	client       Client
	groupName    string
	nestedGroups bool
	pageSize     int
	log          logrus.FieldLogger
	metrics      *observability.Metrics
}

// NewGateway creates a gateway over the given client
func NewGateway(client Client, cfg GatewayConfig, log logrus.FieldLogger, metrics *observability.Metrics) *Gateway {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Gateway{
		client:       client,
		groupName:    cfg.GroupName,
		nestedGroups: cfg.NestedGroups,
		pageSize:     pageSize,
		log:          log,
		metrics:      metrics,
	}
}

// GroupName returns the configured authorization group
func (g *Gateway) GroupName() string { return g.groupName }

// IsGroupActive reports whether the authorization group exists on the
// remote service and is active. Remote failures yield false.
func (g *Gateway) IsGroupActive(ctx context.Context) bool {
	start := time.Now()
	group, err := g.client.GetGroup(ctx, g.groupName)
	g.observe("get_group", start, err)
	if err != nil {
		g.logFailure(err, "authorization group lookup failed")
		return false
	}
	return group.Active
}

// IsGroupMember reports whether the user is a direct member of the
// authorization group, or a transitive member when nested groups are
// enabled. Remote failures yield false: an indeterminate remote state must
// never be mistaken for "allowed".
func (g *Gateway) IsGroupMember(ctx context.Context, username string) bool {
	start := time.Now()
	member, err := g.client.IsUserDirectGroupMember(ctx, username, g.groupName)
	g.observe("direct_membership", start, err)
	if err != nil {
		g.logFailure(err, "direct membership check failed")
		return false
	}
	if member {
		return true
	}

	if !g.nestedGroups {
		return false
	}

	start = time.Now()
	member, err = g.client.IsUserNestedGroupMember(ctx, username, g.groupName)
	g.observe("nested_membership", start, err)
	if err != nil {
		g.logFailure(err, "nested membership check failed")
		return false
	}
	return member
}

// AuthoritiesForUser enumerates all active groups the user belongs to,
// directly and, when enabled, transitively. The result is deduplicated and
// sorted. Enumeration is advisory: partial failures are swallowed and the
// best-effort result returned, because the outcome only determines granted
// capabilities, never whether authentication succeeds.
func (g *Gateway) AuthoritiesForUser(ctx context.Context, username string) []string {
	names := make(map[string]struct{})

	g.collectGroups(ctx, username, g.client.GetGroupsForUser, "direct_groups", names)
	if g.nestedGroups {
		g.collectGroups(ctx, username, g.client.GetGroupsForNestedUser, "nested_groups", names)
	}

	authorities := make([]string, 0, len(names))
	for name := range names {
		authorities = append(authorities, name)
	}
	sort.Strings(authorities)
	return authorities
}

type pageFunc func(ctx context.Context, username string, startIndex, maxResults int) ([]Group, error)

// collectGroups walks the paginated enumeration until an empty page,
// keeping only active groups
func (g *Gateway) collectGroups(ctx context.Context, username string, fetch pageFunc, op string, into map[string]struct{}) {
	index := 0
	for {
		start := time.Now()
		groups, err := fetch(ctx, username, index, g.pageSize)
		g.observe(op, start, err)
		if err != nil {
			g.logFailure(err, "group enumeration aborted")
			return
		}
		if len(groups) == 0 {
			return
		}
		for _, group := range groups {
			if group.Active {
				into[group.Name] = struct{}{}
			}
		}
		index += g.pageSize
	}
}

// AuthenticateUser delegates the raw credential check to the remote
// service. Unlike the boolean gates this returns the classified failure:
// the authentication coordinator maps it onto its public error taxonomy.
func (g *Gateway) AuthenticateUser(ctx context.Context, username, password string) (*User, error) {
	start := time.Now()
	user, err := g.client.AuthenticateUser(ctx, username, password)
	g.observe("authenticate", start, err)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// logFailure writes one diagnostic line at a severity matching the
// failure kind: info for not-found, warning for permission and credential
// issues, error for operation failures.
func (g *Gateway) logFailure(err error, msg string) {
	entry := g.log.WithError(err).WithField("group", g.groupName)
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrGroupNotFound), errors.Is(err, ErrInvalidToken):
		entry.Info(msg)
	case errors.Is(err, ErrOperationFailed):
		entry.Error(msg)
	default:
		entry.Warn(msg)
	}
}

func (g *Gateway) observe(op string, start time.Time, err error) {
	if g.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	g.metrics.DirectoryRequestsTotal.WithLabelValues(op, status).Inc()
	g.metrics.DirectoryRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
