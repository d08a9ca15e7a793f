package types

import "errors"

var (
	ErrInvalidLocation = errors.New("location requires a geopoint or an address")
	ErrMissingLocation = errors.New("resource has no coordinates")
	ErrDetailsFetch    = errors.New("details reference resolved to no data")
	ErrNotFound        = errors.New("document not found")
	ErrInvalidArea     = errors.New("invalid area specifier")
)
