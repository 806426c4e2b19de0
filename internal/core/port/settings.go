package port

import "context"

type SettingsRepository interface {
	// Get returns the raw stored value for key, or domain.ErrSettingNotFound if it was never set.
	Get(ctx context.Context, key string) (string, error)
}
