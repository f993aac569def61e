package objectsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

// HTTPSource is a thin bearer-token REST implementation of Source: the
// minimal concrete wiring needed to run the daemon against a real endpoint.
// Retries and richer typed wire errors belong to the upstream client
// proper, not this layer.
type HTTPSource struct {
	httpClient *http.Client
	baseURL    string
	appKey     string
	metrics    *MetricsCollector
	log        *Logger
}

// NewHTTPSource builds an HTTPSource against baseURL (the content service's
// API root), authenticated with the application key and a static bearer
// token.
func NewHTTPSource(ctx context.Context, baseURL, applicationKey, token string) *HTTPSource {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &HTTPSource{
		httpClient: oauth2.NewClient(ctx, ts),
		baseURL:    baseURL,
		appKey:     applicationKey,
		metrics:    NewMetricsCollector(),
		log:        NewLogger(),
	}
}

// Metrics returns the running API-call metrics collector.
func (s *HTTPSource) Metrics() *MetricsCollector {
	return s.metrics
}

func (s *HTTPSource) doGet(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return nil, ClassifyUpstreamError(0, err)
	}
	q := req.URL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()
	if s.appKey != "" {
		req.Header.Set("x-application-key", s.appKey)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		s.log.Errorf("GET %s failed after %v: %v", path, duration, err)
		return nil, ClassifyUpstreamError(0, err)
	}
	defer resp.Body.Close()

	s.metrics.RecordCall(resp.StatusCode, duration)
	LogAPICall(s.log, http.MethodGet, path, resp.StatusCode, duration)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ClassifyUpstreamError(resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 {
		return nil, ClassifyUpstreamError(resp.StatusCode, fmt.Errorf("%s", string(body)))
	}
	return body, nil
}

func (s *HTTPSource) Identity(ctx context.Context) (string, error) {
	body, err := s.doGet(ctx, "/user/identity", nil)
	if err != nil {
		return "", err
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", ClassifyUpstreamError(0, err)
	}
	return out.ID, nil
}

func (s *HTTPSource) ListWorlds(ctx context.Context, principal string) ([]Ref, error) {
	return s.listRefs(ctx, "/user/worlds", map[string]string{"id": principal})
}

func (s *HTTPSource) ListCategories(ctx context.Context, world string) ([]Ref, error) {
	return s.listRefs(ctx, "/world/categories", map[string]string{"id": world})
}

func (s *HTTPSource) ListArticles(ctx context.Context, world, category string) ([]Ref, error) {
	return s.listRefs(ctx, "/category/articles", map[string]string{"world": world, "category": category})
}

func (s *HTTPSource) listRefs(ctx context.Context, path string, params map[string]string) ([]Ref, error) {
	body, err := s.doGet(ctx, path, params)
	if err != nil {
		return nil, err
	}
	var raw []struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, ClassifyUpstreamError(0, err)
	}
	refs := make([]Ref, 0, len(raw))
	for _, r := range raw {
		refs = append(refs, Ref{ID: r.ID, URL: r.URL})
	}
	return refs, nil
}

func (s *HTTPSource) Get(ctx context.Context, kind Kind, id string, depth int) (Payload, error) {
	var path string
	switch kind {
	case KindWorld:
		path = "/world"
	case KindCategory:
		path = "/category"
	case KindArticle:
		path = "/article"
	default:
		return nil, fmt.Errorf("objectsource: unknown kind %v", kind)
	}
	return s.doGet(ctx, path, map[string]string{"id": id, "granularity": strconv.Itoa(depth)})
}
