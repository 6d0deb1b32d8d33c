package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

// ParsePlatform normalizes and validates a platform string.
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformIOS, PlatformAndroid, PlatformWeb:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPlatform, s)
	}
}

// DeviceToken is one push-capable endpoint belonging to a user. The token
// value is unique across all users: re-registering an existing token under
// another user re-homes it instead of creating a second row.
type DeviceToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    UserID    `gorm:"type:uuid;not null;index" json:"userId"`
	Token     string    `gorm:"type:text;not null;uniqueIndex:ux_device_tokens_token" json:"-"`
	Platform  Platform  `gorm:"type:text;not null" json:"platform"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (DeviceToken) TableName() string { return "device_tokens" }
