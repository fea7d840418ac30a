// Package supabase stores cards in a hosted Supabase project through its
// PostgREST interface.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"card-admin/internal/domain"
)

const (
	table = "cartes"

	// PostgREST error codes.
	codeNoRows      = "PGRST116"
	codeInvalidText = "22P02"

	mediaObject = "application/vnd.pgrst.object+json"
)

// apiError is the PostgREST error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *apiError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

// CardRepository implements domain.CardRepository against /rest/v1/cartes.
type CardRepository struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	maxAttempts int
	backoff     time.Duration
}

// Option customises a CardRepository.
type Option func(*CardRepository)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(r *CardRepository) {
		r.httpClient = c
	}
}

// WithRetry sets how many times reads are attempted and the base delay
// between attempts. Writes are never retried.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(r *CardRepository) {
		if attempts > 0 {
			r.maxAttempts = attempts
		}
		r.backoff = backoff
	}
}

// NewCardRepository creates a client for the project at baseURL using the
// given service key.
func NewCardRepository(baseURL, apiKey string, opts ...Option) *CardRepository {
	r := &CardRepository{
		baseURL:     baseURL,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		maxAttempts: 3,
		backoff:     200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *CardRepository) Create(ctx context.Context, input domain.CardInput) (*domain.Card, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, domain.NewStorageError("create card", err)
	}

	req, err := r.newRequest(ctx, http.MethodPost, nil, bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewStorageError("create card", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", mediaObject)
	req.Header.Set("Prefer", "return=representation")

	var row cardRow
	if err := r.do(req, false, &row); err != nil {
		return nil, domain.NewStorageError("create card", err)
	}
	return row.card(), nil
}

// GetByID maps "no rows" and malformed ids to ErrCardNotFound.
func (r *CardRepository) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+id)

	req, err := r.newRequest(ctx, http.MethodGet, q, nil)
	if err != nil {
		return nil, domain.NewStorageError("get card", err)
	}
	req.Header.Set("Accept", mediaObject)

	var row cardRow
	if err := r.do(req, true, &row); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && (apiErr.Code == codeNoRows || apiErr.Code == codeInvalidText) {
			return nil, domain.ErrCardNotFound
		}
		return nil, domain.NewStorageError("get card", err)
	}
	return row.card(), nil
}

func (r *CardRepository) GetRecent(ctx context.Context, limit int) ([]*domain.Card, error) {
	return r.list(ctx, "list recent cards", domain.RecentLimit(limit))
}

func (r *CardRepository) GetAll(ctx context.Context) ([]*domain.Card, error) {
	return r.list(ctx, "list cards", 0)
}

// Ping issues a one-row read to confirm the project and key are usable.
func (r *CardRepository) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("limit", "1")

	req, err := r.newRequest(ctx, http.MethodGet, q, nil)
	if err != nil {
		return err
	}
	var rows []json.RawMessage
	return r.do(req, false, &rows)
}

func (r *CardRepository) list(ctx context.Context, op string, limit int) ([]*domain.Card, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "cree_a.desc")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	req, err := r.newRequest(ctx, http.MethodGet, q, nil)
	if err != nil {
		return nil, domain.NewStorageError(op, err)
	}

	var rows []cardRow
	if err := r.do(req, true, &rows); err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	cards := make([]*domain.Card, 0, len(rows))
	for i := range rows {
		cards = append(cards, rows[i].card())
	}
	return cards, nil
}

func (r *CardRepository) newRequest(ctx context.Context, method string, q url.Values, body io.Reader) (*http.Request, error) {
	u := r.baseURL + "/rest/v1/" + table
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", r.apiKey)
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	return req, nil
}

// do sends req and decodes a 2xx body into out. Non-2xx responses become
// *apiError. When retry is set, transport errors and 5xx responses are
// retried with linear backoff.
func (r *CardRepository) do(req *http.Request, retry bool, out any) error {
	attempts := 1
	if retry {
		attempts = r.maxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-req.Context().Done():
				return req.Context().Err()
			case <-time.After(time.Duration(attempt-1) * r.backoff):
			}
		}

		resp, err := r.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		lastErr = decodeResponse(resp, out)
		if lastErr == nil || resp.StatusCode < http.StatusInternalServerError {
			return lastErr
		}
	}
	return lastErr
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &apiError{}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
