package testutil

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
)

// ErrNetwork is the default error returned for scripted network failures.
var ErrNetwork = errors.New("network unreachable")

// Call records one request seen by a Doer.
type Call struct {
	Method  string
	URL     string
	Host    string
	Headers map[string]string
	Body    *string
}

// Reply is a scripted outcome: a status code, or an error when Err is set.
type Reply struct {
	Status int
	Err    error
}

// Doer is a scripted HTTP client keyed by request URL.
// URLs without a script answer 200.
type Doer struct {
	mu      sync.Mutex
	scripts map[string][]Reply
	calls   []Call
}

// NewDoer creates a Doer that answers 200 to everything.
func NewDoer() *Doer {
	return &Doer{scripts: make(map[string][]Reply)}
}

// Respond scripts replies for url, consumed in order. The last reply repeats.
func (d *Doer) Respond(url string, replies ...Reply) *Doer {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scripts[url] = append([]Reply(nil), replies...)
	return d
}

// Status scripts a fixed status code for url.
func (d *Doer) Status(url string, code int) *Doer {
	return d.Respond(url, Reply{Status: code})
}

// Fail scripts a network error for url.
func (d *Doer) Fail(url string) *Doer {
	return d.Respond(url, Reply{Err: ErrNetwork})
}

// Do implements replay.Doer.
func (d *Doer) Do(req *http.Request) (*http.Response, error) {
	call := Call{
		Method:  req.Method,
		URL:     req.URL.String(),
		Host:    req.Host,
		Headers: map[string]string{},
	}
	for k := range req.Header {
		call.Headers[k] = req.Header.Get(k)
	}
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		s := string(data)
		call.Body = &s
	}

	d.mu.Lock()
	d.calls = append(d.calls, call)
	reply := Reply{Status: http.StatusOK}
	if script, ok := d.scripts[call.URL]; ok && len(script) > 0 {
		reply = script[0]
		if len(script) > 1 {
			d.scripts[call.URL] = script[1:]
		}
	}
	d.mu.Unlock()

	if reply.Err != nil {
		return nil, reply.Err
	}
	return &http.Response{
		StatusCode: reply.Status,
		Status:     http.StatusText(reply.Status),
		Body:       io.NopCloser(strings.NewReader("")),
		Header:     http.Header{},
		Request:    req,
	}, nil
}

// Calls returns the requests seen so far.
func (d *Doer) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// URLs returns the URL of every request seen so far, in order.
func (d *Doer) URLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.calls))
	for i, c := range d.calls {
		out[i] = c.URL
	}
	return out
}
