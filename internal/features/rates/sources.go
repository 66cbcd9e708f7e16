// Package rates — sources.go implements the ordered source chain.
// Each source is an attempt that either yields a full basket or fails
// softly; the final static source always succeeds.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// source is one attempt in the resolution chain.
type source interface {
	Name() Provenance
	Fetch(ctx context.Context) (map[string]decimal.Decimal, error)
}

// ratesPayload matches both upstream APIs: a USD-based rates object.
type ratesPayload struct {
	Rates map[string]decimal.Decimal `json:"rates"`
}

// httpSource fetches a USD-based basket from a JSON endpoint.
// Any non-2xx status or malformed body is a soft failure.
type httpSource struct {
	name   Provenance
	url    string
	appID  string // primary source wants an app_id + symbols query
	client *http.Client
}

func newPrimarySource(baseURL, appID string, client *http.Client) *httpSource {
	return &httpSource{name: SourcePrimary, url: baseURL, appID: appID, client: client}
}

func newBackupSource(baseURL string, client *http.Client) *httpSource {
	return &httpSource{name: SourceBackup, url: baseURL, client: client}
}

func (s *httpSource) Name() Provenance { return s.name }

func (s *httpSource) Fetch(ctx context.Context) (map[string]decimal.Decimal, error) {
	reqURL := s.url
	if s.appID != "" {
		q := url.Values{}
		q.Set("app_id", s.appID)
		q.Set("symbols", strings.Join(SupportedCurrencies, ","))
		reqURL = s.url + "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rate source %s: %w", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("rate source %s: status %d", s.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("rate source %s: %w", s.name, err)
	}

	var payload ratesPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("rate source %s: malformed body: %w", s.name, err)
	}
	if len(payload.Rates) == 0 {
		return nil, fmt.Errorf("rate source %s: empty rates object", s.name)
	}

	return fillDefaults(payload.Rates), nil
}

// staticSource is the terminal chain element. It never fails.
type staticSource struct{}

func (staticSource) Name() Provenance { return SourceFallback }

func (staticSource) Fetch(context.Context) (map[string]decimal.Decimal, error) {
	return StaticRates(), nil
}

// fillDefaults completes a partial source response from the static table.
// A partial outage upstream must never leave a supported currency undefined.
func fillDefaults(got map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(SupportedCurrencies))
	for _, code := range SupportedCurrencies {
		rate, ok := got[code]
		if !ok || rate.IsZero() {
			out[code] = staticRates[code]
			log.WithField("currency", code).Debug("Rate missing from source, using static default")
			continue
		}
		out[code] = rate
	}
	// USD is the base and is always exactly 1.
	out["USD"] = decimal.NewFromInt(1)
	return out
}
