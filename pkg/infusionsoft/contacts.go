package infusionsoft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/go-querystring/query"
	"github.com/holtech/isbridge/pkg/auth/types"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// ErrContactNotFound is returned when the API has no contact with the given id.
var ErrContactNotFound = errors.New("contact not found")

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// TokenSource supplies an access token for API calls. *auth.Manager
// satisfies it.
type TokenSource interface {
	Token(ctx context.Context) (*types.Token, error)
}

// ContactService reads contacts from the CRM REST API.
type ContactService struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     *zap.Logger
}

// contactQuery is encoded into the request query string.
type contactQuery struct {
	OptionalProperties []string `url:"optional_properties,omitempty,comma"`
}

// NewContactService creates a service for the API at cfg.APIBaseURL.
// httpClient may be nil, in which case a retrying client is built from cfg.
func NewContactService(cfg Config, tokens TokenSource, httpClient *http.Client, logger *zap.Logger) *ContactService {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = NewAPIHTTPClient(logger, cfg.RetryMax, cfg.Timeout)
	}

	return &ContactService{
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		tokens:     tokens,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Load fetches contact id. With no fields the whole contact is returned;
// otherwise only the named fields (gjson paths) that are present. Fields not
// returned by default are requested through optional_properties.
func (s *ContactService) Load(ctx context.Context, id int64, fields []string) (map[string]any, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid contact id %d", id)
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	vals, err := query.Values(contactQuery{OptionalProperties: topLevel(fields)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	reqURL := s.baseURL + "/contacts/" + strconv.FormatInt(id, 10)
	if encoded := vals.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contact request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read contact response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %d", ErrContactNotFound, id)
	case resp.StatusCode != http.StatusOK:
		msg := gjson.GetBytes(body, "message").String()
		s.logger.Warn("contact request rejected",
			zap.Int64("contact_id", id),
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg),
		)
		return nil, fmt.Errorf("infusionsoft api returned %s: %s", resp.Status, msg)
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("infusionsoft api returned invalid json")
	}

	if len(fields) == 0 {
		var contact map[string]any
		if err := json.Unmarshal(body, &contact); err != nil {
			return nil, fmt.Errorf("failed to decode contact: %w", err)
		}
		return contact, nil
	}

	contact := make(map[string]any, len(fields))
	for _, field := range fields {
		if r := gjson.GetBytes(body, field); r.Exists() {
			contact[field] = r.Value()
		}
	}
	return contact, nil
}

// topLevel returns the distinct first path segments of fields.
func topLevel(fields []string) []string {
	seen := make(map[string]bool, len(fields))
	var out []string
	for _, f := range fields {
		name, _, _ := strings.Cut(f, ".")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
