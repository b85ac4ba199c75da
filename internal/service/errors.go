package service

import "errors"

var (
	ErrEmptyOrder        = errors.New("order has no items")
	ErrInvalidQuantity   = errors.New("item count must be at least 1")
	ErrUnknownOffer      = errors.New("order references an unknown offer")
	ErrInvalidName       = errors.New("name must not be empty")
	ErrInvalidOrderCount = errors.New("order count must not be negative")
	ErrInvalidStatus     = errors.New("status must be new or old")
)
