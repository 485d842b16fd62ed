package rendering

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/slidereel/slidereel-backend/internal/timeline"
	"github.com/slidereel/slidereel-backend/pkg/config"
	"github.com/slidereel/slidereel-backend/pkg/enums"
	pkgerrors "github.com/slidereel/slidereel-backend/pkg/errors"
	"github.com/slidereel/slidereel-backend/pkg/logger"
)

const (
	shotstackRequestTimeout = 30 * time.Second
	ingestPollBase          = 500 * time.Millisecond
	ingestPollRetries       = 10
)

// Shotstack drives the Shotstack edit and ingest APIs.
type Shotstack struct {
	httpClient *http.Client
	apiKey     string
	endpoint   string
	ingestURL  string
	logg       *logger.Logger
}

// NewShotstack constructs the Shotstack provider from render configuration.
func NewShotstack(cfg config.RenderConfig, logg *logger.Logger) (*Shotstack, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("shotstack api key required")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("shotstack endpoint required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Shotstack{
		httpClient: &http.Client{Timeout: shotstackRequestTimeout},
		apiKey:     cfg.APIKey,
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		ingestURL:  strings.TrimRight(cfg.IngestURL, "/"),
		logg:       logg,
	}, nil
}

type renderSubmitResponse struct {
	Success  bool `json:"success"`
	Response struct {
		ID string `json:"id"`
	} `json:"response"`
}

type renderStatusResponse struct {
	Success  bool `json:"success"`
	Response struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		URL    string `json:"url"`
		Error  string `json:"error"`
	} `json:"response"`
}

type ingestSourceResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Status string `json:"status"`
			Source string `json:"source"`
			Error  string `json:"error"`
		} `json:"attributes"`
	} `json:"data"`
}

// SubmitRender queues a render and returns the provider job id.
func (s *Shotstack) SubmitRender(ctx context.Context, payload timeline.RenderPayload) (string, error) {
	var parsed renderSubmitResponse
	if err := s.do(ctx, http.MethodPost, s.endpoint+"/render", payload, &parsed); err != nil {
		return "", err
	}
	if parsed.Response.ID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "shotstack render response missing job id")
	}
	return parsed.Response.ID, nil
}

// RenderStatus fetches the current state of a render job.
func (s *Shotstack) RenderStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	if jobID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job id required")
	}
	var parsed renderStatusResponse
	if err := s.do(ctx, http.MethodGet, s.endpoint+"/render/"+jobID, nil, &parsed); err != nil {
		return nil, err
	}
	return &JobStatus{
		Status:       mapShotstackStatus(parsed.Response.Status),
		OutputURL:    parsed.Response.URL,
		ErrorMessage: parsed.Response.Error,
	}, nil
}

// Cancel asks the provider to stop a queued or running render.
func (s *Shotstack) Cancel(ctx context.Context, jobID string) error {
	if jobID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "job id required")
	}
	return s.do(ctx, http.MethodDelete, s.endpoint+"/render/"+jobID, nil, nil)
}

// IngestAsset re-hosts sourceURL on the provider's ingest store and returns
// the provider-local URL once the copy is ready.
func (s *Shotstack) IngestAsset(ctx context.Context, sourceURL string) (string, error) {
	if sourceURL == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "source url required")
	}
	if s.ingestURL == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "shotstack ingest url not configured")
	}

	var created ingestSourceResponse
	body := map[string]string{"url": sourceURL}
	if err := s.do(ctx, http.MethodPost, s.ingestURL+"/sources", body, &created); err != nil {
		return "", err
	}
	if created.Data.ID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "shotstack ingest response missing source id")
	}

	// The copy is asynchronous; poll until the source settles.
	var hosted string
	backoff := retry.WithMaxRetries(ingestPollRetries, retry.NewExponential(ingestPollBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var source ingestSourceResponse
		if err := s.do(ctx, http.MethodGet, s.ingestURL+"/sources/"+created.Data.ID, nil, &source); err != nil {
			return retry.RetryableError(err)
		}
		switch source.Data.Attributes.Status {
		case "ready":
			hosted = source.Data.Attributes.Source
			return nil
		case "failed":
			return pkgerrors.New(pkgerrors.CodeDependency, "shotstack ingest failed: "+source.Data.Attributes.Error)
		default:
			return retry.RetryableError(fmt.Errorf("ingest source %s still %s", created.Data.ID, source.Data.Attributes.Status))
		}
	})
	if err != nil {
		return "", err
	}
	if hosted == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "shotstack ingest ready without source url")
	}
	return hosted, nil
}

func (s *Shotstack) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal request body")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "shotstack request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("shotstack %s %s returned %d: %s", method, url, resp.StatusCode, strings.TrimSpace(string(snippet))))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode shotstack response")
	}
	return nil
}

// mapShotstackStatus folds the provider's fine-grained pipeline states into
// the stored lifecycle.
func mapShotstackStatus(raw string) enums.RenderStatus {
	switch raw {
	case "queued":
		return enums.RenderStatusQueued
	case "fetching", "rendering", "saving":
		return enums.RenderStatusRendering
	case "done":
		return enums.RenderStatusDone
	case "failed":
		return enums.RenderStatusFailed
	default:
		return enums.RenderStatusRendering
	}
}
