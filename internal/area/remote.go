package area

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/woozymasta/geoarea/internal/geo"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// Errors returned by providers.
var (
	ErrNotPolygon      = errors.New("at least 3 points are required for an area")
	ErrMissingReturn   = errors.New("area service response has no <return> element")
	ErrInvalidResponse = errors.New("area service returned a non-numeric area")
)

// DefaultScale converts the legacy service result into square metres.
const DefaultScale = 9101160000.085981

const envelopeTemplate = `<S:Envelope xmlns:S="http://schemas.xmlsoap.org/soap/envelope/" xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/">
  <SOAP-ENV:Header/>
  <S:Body>
    <ns2:polygon_area xmlns:ns2="http://calculator.me.org/">
      <locations>%s</locations>
    </ns2:polygon_area>
  </S:Body>
</S:Envelope>`

var returnPattern = regexp.MustCompile(`(?s)<return>(.*?)</return>`)

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("area service status %d: %s", e.Code, e.Body)
}

// Remote computes areas through the legacy SOAP calculator service.
type Remote struct {
	Client  *http.Client
	URL     string
	Scale   float64
	Timeout time.Duration
	Retries uint64
}

// NewRemote returns a provider for the service at url.
// Zero scale or timeout fall back to DefaultScale and 10 seconds.
func NewRemote(url string, scale float64, timeout time.Duration, retries uint64) *Remote {
	if scale == 0 {
		scale = DefaultScale
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Remote{
		Client:  &http.Client{Timeout: timeout},
		URL:     url,
		Scale:   scale,
		Timeout: timeout,
		Retries: retries,
	}
}

// Envelope builds the SOAP request body for the list.
func Envelope(list geo.CoordinateList) string {
	return fmt.Sprintf(envelopeTemplate, list.Locations())
}

// Area implements Provider. Transient failures (network errors, 429 and 5xx)
// are retried with exponential backoff within the overall timeout.
func (r *Remote) Area(ctx context.Context, list geo.CoordinateList) (float64, error) {
	if len(list) < 3 {
		return 0, ErrNotPolygon
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	body := Envelope(list)
	var raw float64

	op := func() error {
		v, err := r.call(ctx, body)
		if err != nil {
			return classify(err)
		}
		raw = v
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), r.Retries), ctx)
	err := backoff.RetryNotify(op, b, func(err error, d time.Duration) {
		log.Debug().
			Err(err).
			Str("url", r.URL).
			Dur("retry_in", d).
			Msg("Area service request failed, retrying")
	})
	if err != nil {
		return 0, fmt.Errorf("remote area: %w", err)
	}

	return round2(raw * r.Scale), nil
}

func (r *Remote) call(ctx context.Context, body string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, strings.NewReader(body))
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "text/xml")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}

	if resp.StatusCode >= 400 {
		return 0, &httpStatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}

	return parseReturn(data)
}

func parseReturn(data []byte) (float64, error) {
	m := returnPattern.FindSubmatch(data)
	if m == nil {
		return 0, ErrMissingReturn
	}

	v, err := strconv.ParseFloat(string(bytes.TrimSpace(m[1])), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidResponse, m[1])
	}
	return v, nil
}

// classify marks errors that retrying cannot fix as permanent.
func classify(err error) error {
	var he *httpStatusError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return err
		}
		return backoff.Permanent(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return err
	}

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return err
	}

	return backoff.Permanent(err)
}
