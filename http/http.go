// Package http provides HTTP-based implementations of furnitron services: a
// static page renderer for sites that don't need JavaScript, sitemap
// discovery, and a client for a remote classifier model server.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/fwojciec/furnitron"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "furnitron/1.0 (+https://github.com/fwojciec/furnitron)"

// transportError maps a failed round trip to an application error.
// Cancellation passes through untouched so callers can tell it apart from a
// timeout.
func transportError(ctx context.Context, target string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return furnitron.Errorf(furnitron.ETIMEOUT, "request %s: timed out", target)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return furnitron.Errorf(furnitron.ETIMEOUT, "request %s: %v", target, err)
	}
	return furnitron.Errorf(furnitron.ENETWORK, "request %s: %v", target, err)
}

// statusError maps a non-2xx response to an application error. Server-side
// failures and throttling get the transient code; client errors are final.
func statusError(status int, target, transient string) error {
	msg := fmt.Sprintf("HTTP %d for %s", status, target)
	switch {
	case status >= 500, status == http.StatusTooManyRequests, status == http.StatusRequestTimeout:
		return &furnitron.Error{Code: transient, Message: msg}
	case status == http.StatusNotFound, status == http.StatusGone:
		return &furnitron.Error{Code: furnitron.ENOTFOUND, Message: msg}
	default:
		return &furnitron.Error{Code: furnitron.EINVALID, Message: msg}
	}
}
