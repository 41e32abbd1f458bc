package notification

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"mytelmed/metrics"
	"mytelmed/models"

	"go.uber.org/zap"
)

// MatchMode selects how an open client's URL is compared with a destination.
type MatchMode string

const (
	// MatchSubstring focuses any client whose URL contains the destination.
	MatchSubstring MatchMode = "substring"
	// MatchSegment focuses clients whose path equals the destination or continues it with a "/".
	MatchSegment MatchMode = "segment"
)

// ParseMatchMode falls back to MatchSubstring for unknown values.
func ParseMatchMode(s string) MatchMode {
	if MatchMode(strings.ToLower(strings.TrimSpace(s))) == MatchSegment {
		return MatchSegment
	}
	return MatchSubstring
}

type RouteAction string

const (
	RouteFocused RouteAction = "focused"
	RouteOpened  RouteAction = "opened"
	// RouteNone means nothing was navigated; the caller should open URL itself.
	RouteNone RouteAction = "none"
)

// RouteResult tells the portal what happened to a notification click.
type RouteResult struct {
	Action   RouteAction `json:"action"`
	URL      string      `json:"url"`
	ClientID string      `json:"clientId,omitempty"`
}

// ClientRouter sends a user to a notification's destination, reusing an open tab when one matches.
type ClientRouter struct {
	clients Clients
	mode    MatchMode
	logger  *zap.Logger
}

func NewClientRouter(clients Clients, mode MatchMode, logger *zap.Logger) *ClientRouter {
	return &ClientRouter{clients: clients, mode: mode, logger: logger}
}

// Open focuses the first open client already on the destination, or opens one new window.
// At most one window is opened per call.
func (r *ClientRouter) Open(ctx context.Context, userID string, data models.NotificationData) (RouteResult, error) {
	dest := data.URL
	if dest == "" {
		dest = ResolveURL(data.NotificationType, data)
	}
	result := RouteResult{Action: RouteNone, URL: dest}

	open, err := r.clients.MatchAll(ctx, userID)
	if err != nil {
		metrics.ClientRoutesTotal.WithLabelValues("failed").Inc()
		return result, fmt.Errorf("Open: list clients for user %s: %w", userID, err)
	}

	for _, c := range open {
		if !r.matches(c.URL, dest) {
			continue
		}
		if err := r.clients.Focus(ctx, c.ID); err != nil {
			// the tab may have closed since MatchAll; a new window still gets the user there
			r.logger.Warn("client focus failed", zap.String("clientId", c.ID), zap.Error(err))
			break
		}
		metrics.ClientRoutesTotal.WithLabelValues(string(RouteFocused)).Inc()
		result.Action = RouteFocused
		result.ClientID = c.ID
		return result, nil
	}

	if !r.clients.CanOpenWindow(userID) {
		metrics.ClientRoutesTotal.WithLabelValues(string(RouteNone)).Inc()
		return result, nil
	}
	if err := r.clients.OpenWindow(ctx, userID, dest); err != nil {
		metrics.ClientRoutesTotal.WithLabelValues("failed").Inc()
		return result, fmt.Errorf("Open: open window %s: %w", dest, err)
	}
	metrics.ClientRoutesTotal.WithLabelValues(string(RouteOpened)).Inc()
	result.Action = RouteOpened
	return result, nil
}

func (r *ClientRouter) matches(clientURL, dest string) bool {
	if r.mode != MatchSegment {
		return strings.Contains(clientURL, dest)
	}

	p := clientURL
	if u, err := url.Parse(clientURL); err == nil {
		p = u.Path
	}
	if p == dest {
		return true
	}
	return strings.HasPrefix(p, strings.TrimSuffix(dest, "/")+"/")
}
