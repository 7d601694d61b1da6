package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"StreamChat/internal/chat"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Client talks to one model-serving endpoint. It implements chat.Querier for
// the exchange core and additionally exposes the endpoint metadata lookups
// used at dispatch time.
type Client struct {
	baseURL    string
	name       string
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	meter      metric.Meter
}

func NewClient(baseURL, name string, logger *slog.Logger, tracer trace.Tracer, meter metric.Meter) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		name:       name,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger,
		tracer:     tracer,
		meter:      meter,
	}
}

// Name returns the serving endpoint name.
func (c *Client) Name() string { return c.name }

type invocationRequest struct {
	Messages     []chat.Message `json:"messages"`
	Stream       bool           `json:"stream,omitempty"`
	ReturnTraces bool           `json:"return_traces,omitempty"`
}

func (c *Client) invocationsURL() string {
	return fmt.Sprintf("%s/serving-endpoints/%s/invocations", c.baseURL, url.PathEscape(c.name))
}

// QueryStream issues a streaming invocation and returns the lazy fragment
// stream. The caller owns the stream and must close it.
func (c *Client) QueryStream(ctx context.Context, messages []chat.Message, returnTraces bool) (chat.FragmentStream, error) {
	ctx, span := c.tracer.Start(ctx, "endpoint_query_stream")
	defer span.End()

	body, err := json.Marshal(invocationRequest{
		Messages:     messages,
		Stream:       true,
		ReturnTraces: returnTraces,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.invocationsURL(), bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("API error: %s - %s", resp.Status, string(payload))
	}

	c.logger.Info("streaming invocation started", "endpoint", c.name)
	return newSSEStream(resp.Body), nil
}

// syncResponse covers the three non-streaming response shapes a serving
// endpoint may return: chat-agent messages, chat-completions choices, or
// responses output items.
type syncResponse struct {
	Messages []chat.Message `json:"messages"`
	Choices []struct {
		Message chat.Message `json:"message"`
	} `json:"choices"`
	Output   []chat.ResponsesItem  `json:"output"`
	Usage    map[string]any        `json:"usage"`
	Metadata *chat.ServingMetadata `json:"serving_metadata"`
}

// Query issues a synchronous invocation and normalizes the response into the
// common message shape plus the request id, when the endpoint reports one.
func (c *Client) Query(ctx context.Context, messages []chat.Message, returnTraces bool) ([]chat.Message, string, error) {
	ctx, span := c.tracer.Start(ctx, "endpoint_query")
	defer span.End()

	start := time.Now()

	body, err := json.Marshal(invocationRequest{
		Messages:     messages,
		ReturnTraces: returnTraces,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.invocationsURL(), bytes.NewBuffer(body))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("API error: %s - %s", resp.Status, string(payload))
	}

	var parsed syncResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	c.recordDuration(ctx, time.Since(start))
	c.recordUsage(ctx, parsed.Usage)

	out, err := parsed.normalize()
	if err != nil {
		return nil, "", err
	}

	var requestID string
	if parsed.Metadata != nil {
		requestID = parsed.Metadata.RequestID
	}
	return out, requestID, nil
}

func (r syncResponse) normalize() ([]chat.Message, error) {
	switch {
	case len(r.Messages) > 0:
		return r.Messages, nil
	case len(r.Choices) > 0:
		out := make([]chat.Message, 0, len(r.Choices))
		for _, choice := range r.Choices {
			out = append(out, choice.Message)
		}
		return out, nil
	case len(r.Output) > 0:
		var out []chat.Message
		for _, item := range r.Output {
			out = append(out, item.Messages()...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unrecognized response shape from endpoint")
	}
}

// endpointInfo is the metadata document for a serving endpoint.
type endpointInfo struct {
	Name string `json:"name"`
	Task string `json:"task"`
}

// TaskType looks up the endpoint's task classifier. Callers treat lookup
// failures and unknown values as plain chat-completions.
func (c *Client) TaskType(ctx context.Context) (string, error) {
	info, err := c.info(ctx)
	if err != nil {
		return "", err
	}
	return info.Task, nil
}

// SupportsFeedback reports whether the endpoint accepts trace feedback, which
// is the case for agent tasks.
func (c *Client) SupportsFeedback(ctx context.Context) bool {
	info, err := c.info(ctx)
	if err != nil {
		c.logger.Warn("failed to look up endpoint metadata", "endpoint", c.name, "error", err)
		return false
	}
	return strings.HasPrefix(info.Task, "agent/")
}

func (c *Client) info(ctx context.Context) (endpointInfo, error) {
	endpointURL := fmt.Sprintf("%s/serving-endpoints/%s", c.baseURL, url.PathEscape(c.name))
	req, err := http.NewRequestWithContext(ctx, "GET", endpointURL, nil)
	if err != nil {
		return endpointInfo{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return endpointInfo{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return endpointInfo{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return endpointInfo{}, fmt.Errorf("API error: %s - %s", resp.Status, string(payload))
	}

	var info endpointInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		return endpointInfo{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return info, nil
}

func (c *Client) recordDuration(ctx context.Context, d time.Duration) {
	histogram, err := c.meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
	)
	if err == nil {
		histogram.Record(ctx, float64(d.Milliseconds()))
	}
}

// recordUsage turns the endpoint's usage map into counters.
func (c *Client) recordUsage(ctx context.Context, usage map[string]any) {
	if usage == nil {
		return
	}
	for key, value := range usage {
		floatVal, ok := value.(float64)
		if !ok {
			continue
		}
		counter, err := c.meter.Int64Counter(
			fmt.Sprintf("llm.usage.%s", key),
			metric.WithDescription(fmt.Sprintf("LLM usage metric: %s", key)),
		)
		if err != nil {
			c.logger.Warn("failed to create counter", "key", key, "error", err)
			continue
		}
		counter.Add(ctx, int64(floatVal))
	}
}
