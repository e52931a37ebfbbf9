package session

import (
	"net/http"
	"time"
)

// TimingRecord is the wall time of one HTTP round trip.
type TimingRecord struct {
	Method  string
	URL     string
	Elapsed time.Duration
}

type timingTransport struct {
	next    http.RoundTripper
	records []TimingRecord
}

func (t *timingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	t.records = append(t.records, TimingRecord{
		Method:  req.Method,
		URL:     req.URL.String(),
		Elapsed: time.Since(start),
	})
	return resp, err
}
