package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/vestra-ai/vestra/internal/domain"
	"github.com/vestra-ai/vestra/internal/usecase"
)

const (
	// DefaultKieBaseURL is the upstream task API endpoint.
	DefaultKieBaseURL = "https://api.kie.ai"

	kieCreateTaskPath = "/api/v1/jobs/createTask"
	kieRecordInfoPath = "/api/v1/jobs/recordInfo"
	kieModel          = "nano-banana-pro"
)

// KieAdapter is the submit-and-poll backend: createTask returns a task ID
// and recordInfo is polled until a terminal state.
type KieAdapter struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewKieAdapter creates a KieAdapter. baseURL falls back to the production
// endpoint when empty.
func NewKieAdapter(client *http.Client, baseURL, apiKey string) *KieAdapter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultKieBaseURL
	}
	return &KieAdapter{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// Name implements usecase.ProviderAdapter.
func (a *KieAdapter) Name() string { return "kie" }

type kieCreateRequest struct {
	Model string         `json:"model"`
	Input kieCreateInput `json:"input"`
}

type kieCreateInput struct {
	Prompt       string   `json:"prompt"`
	ImageInput   []string `json:"image_input"`
	AspectRatio  string   `json:"aspect_ratio"`
	Resolution   string   `json:"resolution"`
	OutputFormat string   `json:"output_format"`
	Seed         int64    `json:"seed,omitempty"`
}

// kieCreateResponse tolerates both envelope shapes the upstream has been
// observed to return: taskId under data or at the top level.
type kieCreateResponse struct {
	Data struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
	TaskID  string `json:"taskId"`
	Message string `json:"message"`
	Msg     string `json:"msg"`
}

type kieRecordResponse struct {
	Data struct {
		State      string `json:"state"`
		ResultJSON string `json:"resultJson"`
		FailMsg    string `json:"failMsg"`
	} `json:"data"`
}

type kieResult struct {
	ResultURLs []string `json:"resultUrls"`
}

// Submit implements usecase.AsyncAdapter.
func (a *KieAdapter) Submit(ctx context.Context, req usecase.ProviderRequest) (string, error) {
	payload := kieCreateRequest{
		Model: kieModel,
		Input: kieCreateInput{
			Prompt:       req.Prompt,
			ImageInput:   capImages(req.ImageURLs),
			AspectRatio:  req.AspectRatio,
			Resolution:   string(req.Resolution),
			OutputFormat: "png",
			Seed:         req.Seed,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+kieCreateTaskPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", &domain.ProviderError{Provider: a.Name(), Message: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", providerHTTPError(a.Name(), resp)
	}

	var parsed kieCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &domain.ProviderError{Provider: a.Name(), Message: "malformed response: " + err.Error()}
	}

	taskID := parsed.Data.TaskID
	if taskID == "" {
		taskID = parsed.TaskID
	}
	if taskID == "" {
		msg := parsed.Message
		if msg == "" {
			msg = parsed.Msg
		}
		if msg == "" {
			msg = "no task ID in response"
		}
		return "", &domain.ProviderError{Provider: a.Name(), Message: msg}
	}

	return taskID, nil
}

// Poll implements usecase.AsyncAdapter. A success state with an unparsable
// result is reported as still running so the next poll can retry it.
func (a *KieAdapter) Poll(ctx context.Context, taskID string) (*usecase.TaskStatus, error) {
	pollURL := a.baseURL + kieRecordInfoPath + "?taskId=" + url.QueryEscape(taskID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pollURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poll status %d", resp.StatusCode)
	}

	var parsed kieRecordResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("malformed poll response: %w", err)
	}

	switch parsed.Data.State {
	case "success":
		var result kieResult
		if err := json.Unmarshal([]byte(parsed.Data.ResultJSON), &result); err != nil || len(result.ResultURLs) == 0 {
			return &usecase.TaskStatus{State: usecase.TaskStateRunning}, nil
		}
		return &usecase.TaskStatus{
			State:  usecase.TaskStateSucceeded,
			Output: &domain.ProviderOutput{URL: result.ResultURLs[0]},
		}, nil

	case "failed":
		return &usecase.TaskStatus{
			State:   usecase.TaskStateFailed,
			Message: parsed.Data.FailMsg,
		}, nil

	default:
		return &usecase.TaskStatus{State: usecase.TaskStateRunning}, nil
	}
}
