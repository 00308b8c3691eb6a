package usecase_test

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/vestra-ai/vestra/internal/domain"
	"github.com/vestra-ai/vestra/internal/infrastructure/metrics"
	"github.com/vestra-ai/vestra/internal/usecase"
	"github.com/vestra-ai/vestra/internal/usecase/mocks"
)

func fastPoll() usecase.PollConfig {
	return usecase.PollConfig{
		Interval:    time.Millisecond,
		MaxAttempts: 240,
		Budget:      5 * time.Second,
	}
}

func newGeneration(
	blob *mocks.MockBlobStore,
	selector *mocks.MockProviderSelector,
	poll usecase.PollConfig,
	adapters ...usecase.ProviderAdapter,
) *usecase.GenerationUseCase {
	return usecase.NewGenerationUseCase(
		blob,
		selector,
		adapters,
		mocks.NewMockIDGenerator(),
		poll,
		[]string{"tmpfiles.org"},
		nil,
		zerolog.Nop(),
	)
}

func validInput() domain.GenerateInput {
	return domain.GenerateInput{
		Prompt:      "a lighthouse in a storm",
		AspectRatio: "16:9",
		Resolution:  domain.Resolution2K,
	}
}

func TestGenerationUseCase_Generate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.GenerateInput)
	}{
		{
			name:   "empty prompt",
			mutate: func(in *domain.GenerateInput) { in.Prompt = "" },
		},
		{
			name:   "unknown aspect ratio",
			mutate: func(in *domain.GenerateInput) { in.AspectRatio = "5:7" },
		},
		{
			name:   "unknown resolution",
			mutate: func(in *domain.GenerateInput) { in.Resolution = "8K" },
		},
		{
			name: "invalid image reference",
			mutate: func(in *domain.GenerateInput) {
				in.Images = map[string]domain.ImageRef{"main": "ftp://nope"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sync := &mocks.MockSyncAdapter{NameValue: "fal"}
			uc := newGeneration(mocks.NewMockBlobStore(), mocks.NewMockProviderSelector("fal"), fastPoll(), sync)

			input := validInput()
			tt.mutate(&input)

			_, err := uc.Generate(context.Background(), input)

			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(sync.Requests) != 0 {
				t.Error("invalid input must never reach the provider")
			}
		})
	}
}

func TestGenerationUseCase_Generate_Sync(t *testing.T) {
	blob := mocks.NewMockBlobStore()
	sync := &mocks.MockSyncAdapter{NameValue: "fal"}
	uc := newGeneration(blob, mocks.NewMockProviderSelector("fal"), fastPoll(), sync)

	result, err := uc.Generate(context.Background(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Provider != "fal" {
		t.Errorf("expected provider fal, got %q", result.Provider)
	}
	// The provider URL must be re-hosted, never returned as-is.
	if result.AssetURL == "https://provider.test/result.png" {
		t.Error("result must not reference the provider's own URL")
	}
	if !strings.Contains(result.AssetURL, "/generations/") {
		t.Errorf("expected durable generations URL, got %q", result.AssetURL)
	}

	if len(blob.Puts) != 1 || blob.Puts[0].SourceURL != "https://provider.test/result.png" {
		t.Fatalf("expected one re-host of the provider URL, got %+v", blob.Puts)
	}
}

func TestGenerationUseCase_Generate_SeedPassthrough(t *testing.T) {
	sync := &mocks.MockSyncAdapter{NameValue: "fal"}
	uc := newGeneration(mocks.NewMockBlobStore(), mocks.NewMockProviderSelector("fal"), fastPoll(), sync)

	seed := int64(424242)
	input := validInput()
	input.Seed = &seed

	result, err := uc.Generate(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Seed != seed {
		t.Errorf("expected seed %d echoed back, got %d", seed, result.Seed)
	}
	if sync.LastRequest().Seed != seed {
		t.Errorf("expected seed %d sent to provider, got %d", seed, sync.LastRequest().Seed)
	}
}

func TestGenerationUseCase_Generate_ImageNormalization(t *testing.T) {
	blob := mocks.NewMockBlobStore()
	sync := &mocks.MockSyncAdapter{NameValue: "fal"}
	uc := newGeneration(blob, mocks.NewMockProviderSelector("fal"), fastPoll(), sync)

	inline := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))

	input := validInput()
	input.Images = map[string]domain.ImageRef{
		"style":     domain.ImageRef(inline),
		"transient": "https://tmpfiles.org/abc/photo.png",
		"durable":   "https://cdn.example.com/kept.png",
	}

	if _, err := uc.Generate(context.Background(), input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := sync.LastRequest()
	if len(req.ImageURLs) != 3 {
		t.Fatalf("expected 3 image URLs, got %d", len(req.ImageURLs))
	}

	// Roles sort as durable, style, transient.
	if req.ImageURLs[0] != "https://cdn.example.com/kept.png" {
		t.Errorf("durable URL must pass through, got %q", req.ImageURLs[0])
	}
	if !strings.Contains(req.ImageURLs[1], "/uploads/") {
		t.Errorf("inline payload must be uploaded, got %q", req.ImageURLs[1])
	}
	if !strings.Contains(req.ImageURLs[2], "/inputs/") {
		t.Errorf("transient URL must be re-hosted, got %q", req.ImageURLs[2])
	}

	var sawInline bool
	for _, put := range blob.Puts {
		if put.Category == "uploads" {
			sawInline = true
			if put.ContentType != "image/jpeg" {
				t.Errorf("expected content type image/jpeg, got %q", put.ContentType)
			}
			if put.Size != len("jpeg-bytes") {
				t.Errorf("expected decoded payload of %d bytes, got %d", len("jpeg-bytes"), put.Size)
			}
		}
	}
	if !sawInline {
		t.Error("expected inline upload to hit the blob store")
	}
}

func TestGenerationUseCase_Generate_TransientSubdomain(t *testing.T) {
	blob := mocks.NewMockBlobStore()
	sync := &mocks.MockSyncAdapter{NameValue: "fal"}
	uc := newGeneration(blob, mocks.NewMockProviderSelector("fal"), fastPoll(), sync)

	input := validInput()
	input.Images = map[string]domain.ImageRef{
		"main": "https://files.tmpfiles.org/abc/photo.png",
	}

	if _, err := uc.Generate(context.Background(), input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(sync.LastRequest().ImageURLs[0], "/inputs/") {
		t.Errorf("subdomain of a transient host must be re-hosted, got %q", sync.LastRequest().ImageURLs[0])
	}
}

func TestGenerationUseCase_Generate_UnknownProvider(t *testing.T) {
	sync := &mocks.MockSyncAdapter{NameValue: "fal"}
	uc := newGeneration(mocks.NewMockBlobStore(), mocks.NewMockProviderSelector("unconfigured"), fastPoll(), sync)

	_, err := uc.Generate(context.Background(), validInput())
	if !errors.Is(err, domain.ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestGenerationUseCase_Generate_ProviderSwitch(t *testing.T) {
	selector := mocks.NewMockProviderSelector("fal")
	sync := &mocks.MockSyncAdapter{NameValue: "fal"}
	async := &mocks.MockAsyncAdapter{NameValue: "kie"}
	uc := newGeneration(mocks.NewMockBlobStore(), selector, fastPoll(), sync, async)

	result, err := uc.Generate(context.Background(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Provider != "fal" {
		t.Errorf("expected fal before switch, got %q", result.Provider)
	}

	// A switch takes effect on the next call without a restart.
	selector.Switch("kie")

	result, err = uc.Generate(context.Background(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Provider != "kie" {
		t.Errorf("expected kie after switch, got %q", result.Provider)
	}
}

func TestGenerationUseCase_Generate_SyncError(t *testing.T) {
	sync := &mocks.MockSyncAdapter{
		NameValue: "fal",
		GenerateFunc: func(ctx context.Context, req usecase.ProviderRequest) (*domain.ProviderOutput, error) {
			return nil, errors.New("upstream 500")
		},
	}
	uc := newGeneration(mocks.NewMockBlobStore(), mocks.NewMockProviderSelector("fal"), fastPoll(), sync)

	_, err := uc.Generate(context.Background(), validInput())

	var perr *domain.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if perr.Provider != "fal" {
		t.Errorf("expected provider fal in error, got %q", perr.Provider)
	}
}

func TestGenerationUseCase_Generate_EmptySuccess(t *testing.T) {
	sync := &mocks.MockSyncAdapter{
		NameValue: "fal",
		GenerateFunc: func(ctx context.Context, req usecase.ProviderRequest) (*domain.ProviderOutput, error) {
			return &domain.ProviderOutput{}, nil
		},
	}
	uc := newGeneration(mocks.NewMockBlobStore(), mocks.NewMockProviderSelector("fal"), fastPoll(), sync)

	_, err := uc.Generate(context.Background(), validInput())

	var perr *domain.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError for empty success, got %v", err)
	}
}

func TestGenerationUseCase_Generate_BlobMetrics(t *testing.T) {
	m := metrics.New()

	blob := mocks.NewMockBlobStore()
	sync := &mocks.MockSyncAdapter{NameValue: "fal"}
	uc := usecase.NewGenerationUseCase(
		blob,
		mocks.NewMockProviderSelector("fal"),
		[]usecase.ProviderAdapter{sync},
		mocks.NewMockIDGenerator(),
		fastPoll(),
		[]string{"tmpfiles.org"},
		m,
		zerolog.Nop(),
	)

	input := validInput()
	input.Images = map[string]domain.ImageRef{
		"style": domain.ImageRef("data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))),
	}

	if _, err := uc.Generate(context.Background(), input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := testutil.ToFloat64(m.BlobUploads.WithLabelValues("uploads")); got != 1 {
		t.Errorf("expected 1 inline upload counted, got %v", got)
	}
	if got := testutil.ToFloat64(m.BlobUploads.WithLabelValues("generations")); got != 1 {
		t.Errorf("expected 1 output upload counted, got %v", got)
	}

	blob.PutFromURLFunc = func(ctx context.Context, srcURL, category string) (string, error) {
		return "", errors.New("bucket unavailable")
	}
	if _, err := uc.Generate(context.Background(), validInput()); err == nil {
		t.Fatal("expected storage failure")
	}
	if got := testutil.ToFloat64(m.BlobErrors.WithLabelValues("put_from_url")); got != 1 {
		t.Errorf("expected 1 blob error counted, got %v", got)
	}
}

func TestGenerationUseCase_Generate_StorageFailure(t *testing.T) {
	blob := mocks.NewMockBlobStore()
	blob.PutFromURLFunc = func(ctx context.Context, srcURL, category string) (string, error) {
		return "", errors.New("bucket unavailable")
	}
	sync := &mocks.MockSyncAdapter{NameValue: "fal"}
	uc := newGeneration(blob, mocks.NewMockProviderSelector("fal"), fastPoll(), sync)

	_, err := uc.Generate(context.Background(), validInput())

	var serr *domain.StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}

func TestGenerationUseCase_Generate_Async(t *testing.T) {
	blob := mocks.NewMockBlobStore()
	async := &mocks.MockAsyncAdapter{NameValue: "kie"}
	uc := newGeneration(blob, mocks.NewMockProviderSelector("kie"), fastPoll(), async)

	result, err := uc.Generate(context.Background(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.AssetURL, "/generations/") {
		t.Errorf("expected durable generations URL, got %q", result.AssetURL)
	}
	if async.PollCalls < 2 {
		t.Errorf("expected at least 2 polls, got %d", async.PollCalls)
	}
}

func TestGenerationUseCase_Generate_AsyncFailsMidway(t *testing.T) {
	const failAt = 5

	calls := 0
	async := &mocks.MockAsyncAdapter{
		NameValue: "kie",
		PollFunc: func(ctx context.Context, taskID string) (*usecase.TaskStatus, error) {
			calls++
			if calls < failAt {
				return &usecase.TaskStatus{State: usecase.TaskStateRunning}, nil
			}
			return &usecase.TaskStatus{State: usecase.TaskStateFailed, Message: "content policy"}, nil
		},
	}
	uc := newGeneration(mocks.NewMockBlobStore(), mocks.NewMockProviderSelector("kie"), fastPoll(), async)

	_, err := uc.Generate(context.Background(), validInput())

	var perr *domain.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if perr.Message != "content policy" {
		t.Errorf("expected provider failure message, got %q", perr.Message)
	}
	if calls != failAt {
		t.Errorf("expected polling to stop at attempt %d, got %d", failAt, calls)
	}
}

func TestGenerationUseCase_Generate_AsyncTimeout(t *testing.T) {
	async := &mocks.MockAsyncAdapter{
		NameValue: "kie",
		PollFunc: func(ctx context.Context, taskID string) (*usecase.TaskStatus, error) {
			return &usecase.TaskStatus{State: usecase.TaskStateRunning}, nil
		},
	}

	poll := fastPoll()
	poll.MaxAttempts = 7

	uc := newGeneration(mocks.NewMockBlobStore(), mocks.NewMockProviderSelector("kie"), poll, async)

	_, err := uc.Generate(context.Background(), validInput())

	var terr *domain.TimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if terr.Attempts != 7 {
		t.Errorf("expected 7 attempts recorded, got %d", terr.Attempts)
	}
	if terr.TaskID != "task-1" {
		t.Errorf("expected task ID in timeout error, got %q", terr.TaskID)
	}
}

func TestGenerationUseCase_Generate_AsyncPollErrorsTolerated(t *testing.T) {
	calls := 0
	async := &mocks.MockAsyncAdapter{
		NameValue: "kie",
		PollFunc: func(ctx context.Context, taskID string) (*usecase.TaskStatus, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("poll endpoint flaky")
			}
			return &usecase.TaskStatus{
				State:  usecase.TaskStateSucceeded,
				Output: &domain.ProviderOutput{URL: "https://provider.test/late.png"},
			}, nil
		},
	}
	uc := newGeneration(mocks.NewMockBlobStore(), mocks.NewMockProviderSelector("kie"), fastPoll(), async)

	result, err := uc.Generate(context.Background(), validInput())
	if err != nil {
		t.Fatalf("expected transient poll errors to be tolerated, got %v", err)
	}
	if result.AssetURL == "" {
		t.Error("expected a durable asset URL")
	}
}

func TestGenerationUseCase_Generate_AsyncContextCanceled(t *testing.T) {
	async := &mocks.MockAsyncAdapter{
		NameValue: "kie",
		PollFunc: func(ctx context.Context, taskID string) (*usecase.TaskStatus, error) {
			return &usecase.TaskStatus{State: usecase.TaskStateRunning}, nil
		},
	}
	uc := newGeneration(mocks.NewMockBlobStore(), mocks.NewMockProviderSelector("kie"), fastPoll(), async)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := uc.Generate(ctx, validInput())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}
}
