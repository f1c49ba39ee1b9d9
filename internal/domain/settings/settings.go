// Package settings holds small mutable runtime state, currently the home
// location that venue distances are measured from.
package settings

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("setting not found")

// Keys.
const (
	KeyHomePostcode = "home_postcode"
	KeyHomeLat      = "home_lat"
	KeyHomeLng      = "home_lng"
)

type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
