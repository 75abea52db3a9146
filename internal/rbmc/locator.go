// Package rbmc locates daily GNSS observation archives on the IBGE public
// server. Archives are laid out by year and day-of-year, so the locator
// leans on the same day indexing the series pipeline uses.
package rbmc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Norte-Itaipu/ion-data-service/internal/ion"
)

// DefaultBaseURL is the IBGE RBMC daily-data root.
const DefaultBaseURL = "https://geoftp.ibge.gov.br/informacoes_sobre_posicionamento_geodesico/rbmc/dados"

// ErrNotFound means the server has no archive for that station and day.
var ErrNotFound = errors.New("rbmc archive not found")

// Locator builds and verifies RBMC archive URLs.
type Locator struct {
	client  *http.Client
	baseURL string
}

// NewLocator creates a Locator; an empty baseURL selects the IBGE server.
func NewLocator(client *http.Client, baseURL string) *Locator {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Locator{client: client, baseURL: baseURL}
}

// URL returns the archive address for a station and day without contacting
// the server. The path uses the unpadded day-of-year, the file name the
// padded one.
func (l *Locator) URL(station string, day ion.DateKey) string {
	return fmt.Sprintf("%s/%d/%d/%s%s1.zip",
		l.baseURL, day.Year, day.DayOfYear(), strings.ToLower(station), day.DayOfYearPadded())
}

// Locate verifies via a HEAD request that the archive exists and returns its
// URL, or ErrNotFound when the server has nothing for that day.
func (l *Locator) Locate(ctx context.Context, station string, day ion.DateKey) (string, error) {
	u := l.URL(station, day)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return "", err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("rbmc head %s: %w", u, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return u, nil
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrNotFound
	default:
		return "", fmt.Errorf("rbmc head %s: unexpected status %s", u, resp.Status)
	}
}
