package settings

import (
	"context"
	"ogio/internal/core/domain"

	"github.com/spf13/viper"
)

const section = "settings"

// ViperSettings reads plugin options from the [settings] table of the config file.
type ViperSettings struct {
	v *viper.Viper
}

func NewViperSettings(v *viper.Viper) *ViperSettings {
	return &ViperSettings{v: v}
}

func (s *ViperSettings) Get(_ context.Context, key string) (string, error) {
	k := section + "." + key
	if !s.v.IsSet(k) {
		return "", domain.ErrSettingNotFound
	}
	return s.v.GetString(k), nil
}
