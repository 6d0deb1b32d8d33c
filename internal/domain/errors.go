package domain

import "errors"

var (
	ErrMessageNotFound  = errors.New("message not found")
	ErrEmptyBody        = errors.New("message body is empty")
	ErrSameParticipants = errors.New("sender and recipient are the same user")
	ErrInvalidPlatform  = errors.New("invalid platform")
	ErrEmptyToken       = errors.New("device token is empty")
)
