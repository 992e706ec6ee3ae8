package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	crudkit "github.com/goliatone/go-crudkit"
	"github.com/goliatone/go-crudkit/internal/hydrate"
	"github.com/goliatone/go-crudkit/pkg/metrics"
)

const maxErrorBody = 512

// HTTPProvider talks JSON to a backend exposing one POST endpoint per
// operation at {base}/{resource}/{operation}.
type HTTPProvider[T any] struct {
	baseURL  string
	resource string
	client   *http.Client
	headers  http.Header
	decoder  *hydrate.Decoder[T]
	logger   zerolog.Logger
	metrics  *metrics.Collector
}

var _ DataProvider[struct{}] = (*HTTPProvider[struct{}])(nil)

func NewHTTPProvider[T any](baseURL, resource string, opts ...Option[T]) *HTTPProvider[T] {
	cfg := newConfig(opts)
	return &HTTPProvider[T]{
		baseURL:  strings.TrimRight(baseURL, "/"),
		resource: resource,
		client:   cfg.client,
		headers:  cfg.headers,
		decoder:  hydrate.NewDecoder(cfg.decoderOpts...),
		logger:   cfg.logger.With().Str("resource", resource).Logger(),
		metrics:  cfg.metrics,
	}
}

// NewHTTPProviderFor takes base URL and resource name from an instance
// config.
func NewHTTPProviderFor[T any](cfg crudkit.InstanceConfig, opts ...Option[T]) *HTTPProvider[T] {
	return NewHTTPProvider(cfg.APIBaseURL, cfg.ResourceName, opts...)
}

func (p *HTTPProvider[T]) Resource() string { return p.resource }

func (p *HTTPProvider[T]) ReadCount(ctx context.Context, req ReadCount) (uint64, error) {
	body, err := p.post(ctx, OpReadCount, req)
	if err != nil {
		return 0, err
	}
	var count uint64
	if err := json.Unmarshal(body, &count); err != nil {
		return 0, p.decodeError(OpReadCount, err)
	}
	return count, nil
}

func (p *HTTPProvider[T]) ReadMany(ctx context.Context, req ReadMany) ([]T, error) {
	body, err := p.post(ctx, OpReadMany, req)
	if err != nil {
		return nil, err
	}
	rows, err := p.decoder.DecodeList(p.decodeContext(OpReadMany), body)
	if err != nil {
		return nil, p.decodeError(OpReadMany, err)
	}
	return rows, nil
}

func (p *HTTPProvider[T]) ReadOne(ctx context.Context, req ReadOne) (*T, error) {
	body, err := p.post(ctx, OpReadOne, req)
	if err != nil {
		return nil, err
	}
	row, ok, err := p.decoder.DecodeOptional(p.decodeContext(OpReadOne), body)
	if err != nil {
		return nil, p.decodeError(OpReadOne, err)
	}
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (p *HTTPProvider[T]) CreateOne(ctx context.Context, req CreateOne[T]) (*SaveResult[T], error) {
	body, err := p.post(ctx, OpCreateOne, req)
	if err != nil {
		return nil, err
	}
	return p.decodeSaveResult(OpCreateOne, body)
}

func (p *HTTPProvider[T]) UpdateOne(ctx context.Context, req UpdateOne[T]) (*SaveResult[T], error) {
	body, err := p.post(ctx, OpUpdateOne, req)
	if err != nil {
		return nil, err
	}
	return p.decodeSaveResult(OpUpdateOne, body)
}

func (p *HTTPProvider[T]) DeleteByID(ctx context.Context, req DeleteByID) (DeleteResult, error) {
	body, err := p.post(ctx, OpDeleteByID, req)
	if err != nil {
		return DeleteResult{}, err
	}
	var result DeleteResult
	if err := json.Unmarshal(body, &result); err != nil {
		return DeleteResult{}, p.decodeError(OpDeleteByID, err)
	}
	return result, nil
}

type saveEnvelope struct {
	Entity     json.RawMessage     `json:"entity"`
	Violations []crudkit.Violation `json:"violations"`
}

func (p *HTTPProvider[T]) decodeSaveResult(op string, body []byte) (*SaveResult[T], error) {
	var envelope *saveEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, p.decodeError(op, err)
	}
	if envelope == nil {
		return nil, nil
	}
	entity, err := p.decoder.Decode(p.decodeContext(op), envelope.Entity)
	if err != nil {
		return nil, p.decodeError(op, err)
	}
	return &SaveResult[T]{Entity: entity, Violations: envelope.Violations}, nil
}

func (p *HTTPProvider[T]) post(ctx context.Context, op string, req any) (body []byte, err error) {
	started := time.Now()
	defer func() {
		p.metrics.ObserveRequest(p.resource, op, started, err)
		event := p.logger.Debug()
		if err != nil {
			event = p.logger.Warn().Err(err)
		}
		event.Str("operation", op).Dur("duration", time.Since(started)).Msg("rest request")
	}()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &RequestError{Kind: KindEncode, Resource: p.resource, Operation: op, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(op), bytes.NewReader(payload))
	if err != nil {
		return nil, &RequestError{Kind: KindEncode, Resource: p.resource, Operation: op, Err: err}
	}
	for key, values := range p.headers {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &RequestError{Kind: KindNetwork, Resource: p.resource, Operation: op, Err: err}
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Kind: KindNetwork, Resource: p.resource, Operation: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text := strings.TrimSpace(string(body))
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return nil, &RequestError{Kind: KindStatus, Resource: p.resource, Operation: op, Status: resp.StatusCode, Body: text}
	}
	return body, nil
}

func (p *HTTPProvider[T]) endpoint(op string) string {
	return p.baseURL + "/" + url.PathEscape(p.resource) + "/" + op
}

func (p *HTTPProvider[T]) decodeContext(op string) hydrate.Context {
	return hydrate.Context{Resource: p.resource, Operation: op}
}

func (p *HTTPProvider[T]) decodeError(op string, err error) error {
	return &RequestError{Kind: KindDecode, Resource: p.resource, Operation: op, Err: err}
}
