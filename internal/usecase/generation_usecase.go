package usecase

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/rand/v2"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vestra-ai/vestra/internal/domain"
	"github.com/vestra-ai/vestra/internal/infrastructure/metrics"
)

// PollConfig bounds the submit-and-poll protocol. A poll loop terminates
// when either the attempt cap or the wall-clock budget is exhausted,
// whichever comes first, and aborts immediately on context cancellation.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
	Budget      time.Duration
}

// DefaultPollConfig mirrors the upstream task API limits: one poll per
// second for up to four minutes.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:    time.Second,
		MaxAttempts: 240,
		Budget:      4 * time.Minute,
	}
}

// GenerationUseCase normalizes inputs, routes to the active provider,
// drives its protocol to a terminal state, and persists the result
// durably. Charging is not its concern; the composition layer charges only
// after a success.
type GenerationUseCase struct {
	blob           BlobStore
	selector       ProviderSelector
	adapters       map[string]ProviderAdapter
	idGen          IDGenerator
	poll           PollConfig
	transientHosts []string
	metrics        *metrics.Metrics
	logger         zerolog.Logger
}

// NewGenerationUseCase creates a new GenerationUseCase. transientHosts
// names hosting domains whose URLs must be re-hosted before use.
func NewGenerationUseCase(
	blob BlobStore,
	selector ProviderSelector,
	adapters []ProviderAdapter,
	idGen IDGenerator,
	poll PollConfig,
	transientHosts []string,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *GenerationUseCase {
	byName := make(map[string]ProviderAdapter, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
	}

	def := DefaultPollConfig()
	if poll.Interval <= 0 {
		poll.Interval = def.Interval
	}
	if poll.MaxAttempts <= 0 {
		poll.MaxAttempts = def.MaxAttempts
	}
	if poll.Budget <= 0 {
		poll.Budget = def.Budget
	}

	return &GenerationUseCase{
		blob:           blob,
		selector:       selector,
		adapters:       byName,
		idGen:          idGen,
		poll:           poll,
		transientHosts: transientHosts,
		metrics:        metrics,
		logger:         logger,
	}
}

// Generate runs one generation request to completion or failure. The
// returned AssetURL is durable; it is never the provider's own URL.
func (uc *GenerationUseCase) Generate(ctx context.Context, input domain.GenerateInput) (*domain.GenerateResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	job := domain.NewJob(uc.idGen.Generate())
	log := uc.logger.With().Str("job_id", job.ID).Logger()

	imageURLs, err := uc.normalizeImages(ctx, input.Images)
	if err != nil {
		return nil, err
	}
	job.Advance(domain.JobStateInputNormalized)

	providerName, err := uc.selector.CurrentProvider(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve active provider: %w", err)
	}

	adapter, ok := uc.adapters[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProvider, providerName)
	}
	job.Provider = providerName
	log = log.With().Str("provider", providerName).Logger()

	seed := int64(rand.Int32())
	if input.Seed != nil {
		seed = *input.Seed
	}

	req := ProviderRequest{
		Prompt:          input.Prompt,
		NegativePrompt:  input.NegativePrompt,
		ImageURLs:       imageURLs,
		AspectRatio:     input.AspectRatio,
		Resolution:      input.Resolution,
		Seed:            seed,
		EnableWebSearch: input.EnableWebSearch,
	}

	if uc.metrics != nil {
		uc.metrics.GenerationsStarted.Inc()
	}
	job.Advance(domain.JobStateDispatched)
	log.Info().Int("image_count", len(imageURLs)).Msg("generation dispatched")

	var output *domain.ProviderOutput

	switch a := adapter.(type) {
	case SyncAdapter:
		output, err = a.Generate(ctx, req)
		if err != nil {
			uc.finish(job, domain.JobStateFailed, log)
			return nil, uc.asProviderError(providerName, err)
		}
		job.Advance(domain.JobStateSyncComplete)

	case AsyncAdapter:
		output, err = uc.runAsync(ctx, a, req, job, log)
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: %s implements no dispatch protocol", domain.ErrUnknownProvider, providerName)
	}

	if output.Empty() {
		uc.finish(job, domain.JobStateFailed, log)
		return nil, &domain.ProviderError{
			Provider: providerName,
			Message:  "reported success with no result",
		}
	}

	assetURL, err := uc.persistOutput(ctx, output)
	if err != nil {
		uc.finish(job, domain.JobStateFailed, log)
		return nil, &domain.StorageError{Op: "persist output", Err: err}
	}

	uc.finish(job, domain.JobStateSucceeded, log)

	return &domain.GenerateResult{
		AssetURL: assetURL,
		Provider: providerName,
		Seed:     seed,
	}, nil
}

// runAsync drives a submit-and-poll backend: POLLING self-loops on a fixed
// interval until a terminal provider status, the attempt cap, the wall-clock
// budget, or context cancellation.
func (uc *GenerationUseCase) runAsync(ctx context.Context, a AsyncAdapter, req ProviderRequest, job *domain.Job, log zerolog.Logger) (*domain.ProviderOutput, error) {
	taskID, err := a.Submit(ctx, req)
	if err != nil {
		uc.finish(job, domain.JobStateFailed, log)
		return nil, uc.asProviderError(a.Name(), err)
	}
	log.Debug().Str("task_id", taskID).Msg("task submitted")

	ticker := time.NewTicker(uc.poll.Interval)
	defer ticker.Stop()

	started := time.Now()
	deadline := started.Add(uc.poll.Budget)

	for attempt := 1; ; attempt++ {
		if attempt > uc.poll.MaxAttempts || time.Now().After(deadline) {
			uc.finish(job, domain.JobStateTimeout, log)
			return nil, &domain.TimeoutError{
				Provider: a.Name(),
				TaskID:   taskID,
				Attempts: job.Attempts,
				Elapsed:  time.Since(started),
			}
		}

		select {
		case <-ctx.Done():
			// Client went away: stop consuming resources immediately.
			uc.finish(job, domain.JobStateTimeout, log)
			return nil, ctx.Err()
		case <-ticker.C:
		}

		job.Advance(domain.JobStatePolling)

		status, err := a.Poll(ctx, taskID)
		if err != nil {
			// Transient poll failures don't fail the task; the budget
			// still bounds the loop.
			log.Warn().Err(err).Int("attempt", attempt).Msg("poll failed")
			continue
		}

		switch status.State {
		case TaskStateSucceeded:
			if uc.metrics != nil {
				uc.metrics.PollAttempts.Observe(float64(attempt))
			}
			return status.Output, nil

		case TaskStateFailed:
			uc.finish(job, domain.JobStateFailed, log)
			return nil, &domain.ProviderError{
				Provider: a.Name(),
				Message:  status.Message,
			}
		}
	}
}

// normalizeImages rewrites every reference to a durable URL: inline base64
// payloads are uploaded, transient-host URLs are fetched and re-hosted,
// durable URLs pass through. Roles are processed in sorted order so the
// resulting list is deterministic.
func (uc *GenerationUseCase) normalizeImages(ctx context.Context, images map[string]domain.ImageRef) ([]string, error) {
	roles := make([]string, 0, len(images))
	for role := range images {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	urls := make([]string, 0, len(roles))

	for _, role := range roles {
		ref := images[role]

		switch {
		case ref.Inline():
			data, contentType, err := decodeDataURI(string(ref))
			if err != nil {
				return nil, &domain.ValidationError{Field: "images." + role, Reason: err.Error()}
			}

			u, err := uc.blobPut(ctx, data, contentType, "uploads")
			if err != nil {
				return nil, &domain.StorageError{Op: "upload inline image " + role, Err: err}
			}
			urls = append(urls, u)

		case uc.isTransientURL(string(ref)):
			u, err := uc.blobPutFromURL(ctx, string(ref), "inputs")
			if err != nil {
				return nil, &domain.StorageError{Op: "re-host transient image " + role, Err: err}
			}
			urls = append(urls, u)

		default:
			urls = append(urls, string(ref))
		}
	}

	return urls, nil
}

func (uc *GenerationUseCase) persistOutput(ctx context.Context, output *domain.ProviderOutput) (string, error) {
	if output.URL != "" {
		return uc.blobPutFromURL(ctx, output.URL, "generations")
	}
	return uc.blobPut(ctx, output.Data, "image/png", "generations")
}

func (uc *GenerationUseCase) blobPut(ctx context.Context, data []byte, contentType, category string) (string, error) {
	u, err := uc.blob.Put(ctx, data, contentType, category)
	uc.observeBlob("put", category, err)
	return u, err
}

func (uc *GenerationUseCase) blobPutFromURL(ctx context.Context, srcURL, category string) (string, error) {
	u, err := uc.blob.PutFromURL(ctx, srcURL, category)
	uc.observeBlob("put_from_url", category, err)
	return u, err
}

func (uc *GenerationUseCase) observeBlob(op, category string, err error) {
	if uc.metrics == nil {
		return
	}
	if err != nil {
		uc.metrics.BlobErrors.WithLabelValues(op).Inc()
		return
	}
	uc.metrics.BlobUploads.WithLabelValues(category).Inc()
}

func (uc *GenerationUseCase) isTransientURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())

	for _, transient := range uc.transientHosts {
		if host == transient || strings.HasSuffix(host, "."+transient) {
			return true
		}
	}
	return false
}

func (uc *GenerationUseCase) finish(job *domain.Job, state domain.JobState, log zerolog.Logger) {
	job.Advance(state)

	elapsed := time.Since(job.StartedAt)
	log.Info().
		Str("state", string(state)).
		Int("attempts", job.Attempts).
		Dur("elapsed", elapsed).
		Msg("generation finished")

	if uc.metrics != nil {
		uc.metrics.GenerationsDone.WithLabelValues(job.Provider, string(state)).Inc()
		uc.metrics.GenerationDuration.WithLabelValues(job.Provider).Observe(elapsed.Seconds())
	}
}

// asProviderError wraps an adapter error unless it already carries a
// domain type.
func (uc *GenerationUseCase) asProviderError(provider string, err error) error {
	switch err.(type) {
	case *domain.ProviderError, *domain.TimeoutError, *domain.StorageError, *domain.ValidationError:
		return err
	}
	return &domain.ProviderError{Provider: provider, Message: err.Error(), Retryable: true}
}

// decodeDataURI splits a data URI into raw bytes and content type.
func decodeDataURI(uri string) ([]byte, string, error) {
	meta, payload, found := strings.Cut(uri, ",")
	if !found {
		return nil, "", fmt.Errorf("malformed data URI")
	}

	contentType := "application/octet-stream"
	if rest, ok := strings.CutPrefix(meta, "data:"); ok {
		if ct, _, _ := strings.Cut(rest, ";"); ct != "" {
			contentType = ct
		}
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode base64 payload: %w", err)
	}

	return data, contentType, nil
}
