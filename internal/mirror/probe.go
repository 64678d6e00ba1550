package mirror

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	probeTimeout   = 10 * time.Second
	probeUserAgent = "pacmirror/1.0"

	// DefaultProbeWorkers bounds probe fan-out when the caller does not
	// supply a degree of parallelism.
	DefaultProbeWorkers = 5
)

// newProbeClient builds the HTTP client used for benchmark probes.
// Compression is disabled so the measured byte count matches the database
// file size, the proxy is bypassed to measure the mirror itself, and
// certificate validation is relaxed: mirrors often present mismatched or
// self-signed certificates, and reachability matters more than identity for
// a measurement-only request.
func newProbeClient() *http.Client {
	return &http.Client{
		Timeout: probeTimeout,
		Transport: &http.Transport{
			Proxy:              nil,
			DisableCompression: true,
			TLSClientConfig:    &tls.Config{InsecureSkipVerify: true},
		},
	}
}

// ProbeURL joins a mirror base URL with the database path of repo.
func ProbeURL(base string, repo TargetRepo) string {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + repo.DBPath()
}

// ProbeAll measures the transfer rate of every mirror by downloading the
// repo database once per mirror, fanning out across at most workers
// concurrent probes. Each goroutine writes only to its own slot of mirrors,
// so no locking is needed and result order is independent of completion
// order. A failed probe (timeout, connection error, non-200 status, unknown
// content length) leaves TransferRate nil and is logged at Warn; it never
// aborts sibling probes or the stage. ProbeAll returns after every probe has
// settled.
func ProbeAll(ctx context.Context, mirrors Mirrors, repo TargetRepo, workers int, logger *slog.Logger) {
	if workers <= 0 {
		workers = DefaultProbeWorkers
	}

	client := newProbeClient()
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i := range mirrors {
		wg.Add(1)
		go func(m *Mirror) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			rate, err := probe(ctx, client, m.URL, repo)
			if err != nil {
				logger.Warn("probe failed", "url", m.URL, "error", err)
				return
			}
			m.TransferRate = &rate
		}(&mirrors[i])
	}

	wg.Wait()
}

// probe downloads the repo database from one mirror and returns the measured
// transfer rate in bytes per second.
func probe(ctx context.Context, client *http.Client, base string, repo TargetRepo) (float64, error) {
	url := ProbeURL(base, repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", probeUserAgent)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &probeStatusError{url: url, status: resp.Status}
	}
	if resp.ContentLength < 0 {
		return 0, &probeLengthError{url: url}
	}

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return 0, err
	}
	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 {
		return 0, fmt.Errorf("zero elapsed transfer time for %s", url)
	}

	return float64(resp.ContentLength) / elapsed, nil
}

type probeStatusError struct {
	url    string
	status string
}

func (e *probeStatusError) Error() string {
	return "unexpected status " + e.status + " for " + e.url
}

type probeLengthError struct {
	url string
}

func (e *probeLengthError) Error() string {
	return "no usable content length for " + e.url
}
