package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vestra-ai/vestra/internal/domain"
)

// SettingsUseCase owns the runtime-mutable provider setting. Reads go
// through a short-TTL cache; writes invalidate it, so a provider switch
// takes effect on the next generation call without a restart. Bounded
// staleness across process instances is acceptable.
type SettingsUseCase struct {
	settings        SettingRepository
	cache           Cache
	known           map[string]bool
	defaultProvider string
	cacheTTL        time.Duration
	logger          zerolog.Logger
}

// NewSettingsUseCase creates a new SettingsUseCase. knownProviders is the
// fixed set of selectable provider names; defaultProvider is used when the
// setting is unset.
func NewSettingsUseCase(
	settings SettingRepository,
	cache Cache,
	knownProviders []string,
	defaultProvider string,
	logger zerolog.Logger,
) *SettingsUseCase {
	known := make(map[string]bool, len(knownProviders))
	for _, name := range knownProviders {
		known[name] = true
	}

	return &SettingsUseCase{
		settings:        settings,
		cache:           cache,
		known:           known,
		defaultProvider: defaultProvider,
		cacheTTL:        ProviderSettingTTL,
		logger:          logger,
	}
}

// CurrentProvider returns the active provider name.
func (uc *SettingsUseCase) CurrentProvider(ctx context.Context) (string, error) {
	if uc.cache != nil {
		if cached, err := uc.cache.Get(ctx, ProviderSettingKey); err == nil && cached != "" {
			return cached, nil
		}
	}

	value, err := uc.settings.Get(ctx, ProviderSettingKey)
	if err != nil {
		return "", err
	}
	if value == "" {
		value = uc.defaultProvider
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, ProviderSettingKey, value, uc.cacheTTL); err != nil {
			uc.logger.Warn().Err(err).Msg("failed to cache provider setting")
		}
	}

	return value, nil
}

// SetProvider switches the active provider. The value must be one of the
// known provider names.
func (uc *SettingsUseCase) SetProvider(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if !uc.known[name] {
		return domain.ErrUnknownProvider
	}

	if err := uc.settings.Set(ctx, ProviderSettingKey, name); err != nil {
		return err
	}

	if uc.cache != nil {
		if err := uc.cache.Delete(ctx, ProviderSettingKey); err != nil {
			uc.logger.Warn().Err(err).Msg("failed to invalidate provider setting cache")
		}
	}

	uc.logger.Info().Str("provider", name).Msg("generation provider switched")

	return nil
}

// KnownProviders lists the selectable provider names.
func (uc *SettingsUseCase) KnownProviders() []string {
	names := make([]string, 0, len(uc.known))
	for name := range uc.known {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
