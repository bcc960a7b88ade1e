package smoketest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/segmentio/encoding/json"
)

const (
	ErrTypeBadRequest = "smoke_test_bad_request"

	defaultTimeout = 10 * time.Second
)

// Request is the body of a smoke test request.
type Request struct {
	// The cellgrid endpoint to test.
	Endpoint string `json:"endpoint"`

	// The maximum duration of the test.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Results describes how a smoke test went.
type Results struct {
	FromEndpoint    string    `json:"from_endpoint"`
	ToEndpoint      string    `json:"to_endpoint"`
	Success         bool      `json:"success"`
	Error           string    `json:"error,omitempty"`
	Steps           int       `json:"steps"`
	LatencyMilliSec float64   `json:"latency_ms"`
	Timestamp       time.Time `json:"timestamp"`
}

type Options struct {
	// The endpoint of the server running the smoke tests.
	Endpoint  string
	UserAgent string
	Transport http.RoundTripper

	// Called with the results of each smoke test.
	SendResult func(context.Context, Results) error
}

// HandleSmokeTest starts a smoke test against the endpoint given in the
// request body. The test runs in the background and its results are passed
// to opts.SendResult.
func HandleSmokeTest(ctx context.Context, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			logs.Warn(errors.New("reading body failed").Wrap(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		var req Request
		if err := json.Unmarshal(b, &req); err != nil || req.Endpoint == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		go func() {
			res, err := Run(ctx, opts, req)
			if err != nil {
				logs.Warn(err)
			}

			if err := opts.SendResult(ctx, res); err != nil {
				logs.WithTag("from_endpoint", opts.Endpoint).
					WithTag("to_endpoint", req.Endpoint).
					Warn(errors.New("sending smoke test result failed").Wrap(err))
			}
		}()

		w.WriteHeader(http.StatusOK)
	}
}

// Run adds an object to the space served at req.Endpoint, finds it with a
// ball query and removes it.
func Run(ctx context.Context, opts Options, req Request) (Results, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := client{
		endpoint:  strings.TrimSuffix(req.Endpoint, "/"),
		userAgent: opts.UserAgent,
		http:      &http.Client{Transport: opts.Transport},
	}

	res := Results{
		FromEndpoint: opts.Endpoint,
		ToEndpoint:   req.Endpoint,
		Timestamp:    time.Now(),
	}

	err := c.run(ctx)
	res.Steps = c.steps
	if c.steps != 0 {
		res.LatencyMilliSec = float64(c.elapsed.Microseconds()) / 1000 / float64(c.steps)
	}
	if err != nil {
		res.Error = err.Error()
		return res, errors.New("smoke test failed").
			WithTag("to_endpoint", req.Endpoint).
			Wrap(err)
	}

	res.Success = true
	return res, nil
}

type object struct {
	ID    uint32    `json:"id"`
	Point []float64 `json:"point"`
}

type client struct {
	endpoint  string
	userAgent string
	http      *http.Client

	steps   int
	elapsed time.Duration
}

func (c *client) run(ctx context.Context) error {
	var info struct {
		CellSize []float64 `json:"cell_size"`
	}
	if err := c.do(ctx, http.MethodGet, "/range", nil, &info); err != nil {
		return err
	}
	if len(info.CellSize) == 0 {
		return errors.New("space has no dimensions")
	}

	point := make([]float64, len(info.CellSize))
	for k, h := range info.CellSize {
		point[k] = h / 2
	}

	var added object
	if err := c.do(ctx, http.MethodPost, "/objects", map[string]any{"point": point}, &added); err != nil {
		return err
	}
	defer c.do(context.WithoutCancel(ctx), http.MethodDelete, fmt.Sprintf("/objects/%d", added.ID), nil, nil)

	var found struct {
		Objects []object `json:"objects"`
	}
	if err := c.do(ctx, http.MethodPost, "/query/ball", map[string]any{
		"center": point,
		"radius": 0,
		"exact":  true,
	}, &found); err != nil {
		return err
	}

	for _, o := range found.Objects {
		if o.ID == added.ID {
			return nil
		}
	}
	return errors.New("added object not found by ball query").
		WithTag("object_id", added.ID)
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.New("encoding request failed").Wrap(err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return errors.New("creating request failed").Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	c.elapsed += time.Since(start)
	c.steps++
	if err != nil {
		return errors.New("sending request failed").
			WithTag("path", path).
			Wrap(err)
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.New("reading response failed").Wrap(err)
	}

	if res.StatusCode >= 300 {
		return errors.New("unexpected response status").
			WithTag("path", path).
			WithTag("status", res.StatusCode).
			WithTag("body", string(b))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return errors.New("decoding response failed").
			WithTag("path", path).
			Wrap(err)
	}
	return nil
}
