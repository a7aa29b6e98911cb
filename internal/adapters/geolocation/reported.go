// Package geolocation adapts device position reports to ports.Geolocator.
package geolocation

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/domain"
)

// Platform geolocation failures, numbered like the W3C PositionError codes.
var (
	ErrPermissionDenied = errors.New("geolocation: permission denied")
	ErrUnavailable      = errors.New("geolocation: position unavailable")
	ErrTimeout          = errors.New("geolocation: timeout")
)

// ErrorFromCode maps a W3C PositionError code to an error.
func ErrorFromCode(code int, message string) error {
	var base error
	switch code {
	case 1:
		base = ErrPermissionDenied
	case 3:
		base = ErrTimeout
	default:
		base = ErrUnavailable
	}
	if message == "" {
		return base
	}
	return fmt.Errorf("%w: %s", base, message)
}

type report struct {
	p   domain.GeoPoint
	err error
}

// Reported answers CurrentPosition with the first position (or failure) a
// client reports. It stands in for the platform, so it also enforces the
// platform timeout.
type Reported struct {
	ch      chan report
	used    atomic.Bool
	timeout time.Duration
}

// NewReported creates a Reported geolocator; timeout <= 0 disables it.
func NewReported(timeout time.Duration) *Reported {
	return &Reported{ch: make(chan report, 1), timeout: timeout}
}

// Report delivers a device position. Only the first report counts; later
// ones return false.
func (r *Reported) Report(p domain.GeoPoint) bool {
	return r.offer(report{p: p})
}

// Fail delivers a device failure.
func (r *Reported) Fail(err error) bool {
	if err == nil {
		err = ErrUnavailable
	}
	return r.offer(report{err: err})
}

func (r *Reported) offer(rep report) bool {
	if !r.used.CompareAndSwap(false, true) {
		return false
	}
	r.ch <- rep
	return true
}

// CurrentPosition implements ports.Geolocator.
func (r *Reported) CurrentPosition(ctx context.Context) (domain.GeoPoint, error) {
	var timeout <-chan time.Time
	if r.timeout > 0 {
		t := time.NewTimer(r.timeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case rep := <-r.ch:
		return rep.p, rep.err
	case <-timeout:
		return domain.GeoPoint{}, ErrTimeout
	case <-ctx.Done():
		return domain.GeoPoint{}, ctx.Err()
	}
}
