// Package probe issues single bounded-time calls against a team's endpoint
// and classifies the outcome.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultTimeout      = 5000 * time.Millisecond
	DefaultMaxBodyBytes = 1 << 20
)

type ErrorKind int

const (
	None ErrorKind = iota
	Timeout
	HTTPError
	InvalidFormat
	Transport
)

func (k ErrorKind) String() string {
	switch k {
	case None:
		return "None"
	case Timeout:
		return "Timeout"
	case HTTPError:
		return "HttpError"
	case InvalidFormat:
		return "InvalidFormat"
	case Transport:
		return "Transport"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Outcome is the classified result of one probe. Message is diagnostic only.
type Outcome struct {
	Success bool
	Output  string
	// Raw is set when output was not a JSON string. Output then holds its
	// JSON text, which never equals an expected output.
	Raw     bool
	Latency time.Duration
	Kind    ErrorKind
	Message string
}

// LatencyMs reports the latency in fractional milliseconds.
func (o Outcome) LatencyMs() float64 {
	return float64(o.Latency) / float64(time.Millisecond)
}

// Observer is notified of every completed probe.
type Observer interface {
	ObserveProbe(kind ErrorKind, latency time.Duration)
}

type Client struct {
	HTTP         *http.Client
	Timeout      time.Duration
	MaxBodyBytes int64
	Observer     Observer
}

// NewClient returns a Client with the default timeout and body limit.
func NewClient() *Client {
	return &Client{
		HTTP:         &http.Client{},
		Timeout:      DefaultTimeout,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

type request struct {
	Input string `json:"input"`
}

type response struct {
	Output json.RawMessage `json:"output"`
}

// Probe POSTs {"input": input} to endpointURL and waits at most c.Timeout for
// the response. It never retries and never returns an error: every failure is
// reported through the Outcome.
func (c *Client) Probe(ctx context.Context, endpointURL, input string) Outcome {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out := c.do(ctx, endpointURL, input)
	out.Latency = time.Since(start)
	if out.Kind == Transport && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		out.Kind = Timeout
		out.Message = "Timeout"
	}
	if c.Observer != nil {
		c.Observer.ObserveProbe(out.Kind, out.Latency)
	}
	return out
}

func (c *Client) do(ctx context.Context, endpointURL, input string) Outcome {
	body, _ := json.Marshal(request{Input: input})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(body))
	if err != nil {
		return failure(Transport, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return failure(Transport, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return failure(HTTPError, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	data, err := ReadAllWithLimit(resp.Body, c.MaxBodyBytes)
	if err != nil {
		return failure(Transport, err.Error())
	}
	if !json.Valid(data) {
		return failure(Transport, "decoding response: body is not valid JSON")
	}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return failure(Transport, "decoding response: body is null")
	}
	var parsed response
	err = json.Unmarshal(data, &parsed)
	output, ok := truthy(parsed.Output)
	if err != nil || !ok {
		return failure(InvalidFormat, "Invalid response format: missing output field")
	}
	raw := bytes.TrimSpace(parsed.Output)[0] != '"'
	return Outcome{Success: true, Output: output, Raw: raw, Kind: None}
}

func failure(kind ErrorKind, msg string) Outcome {
	return Outcome{Kind: kind, Message: msg}
}

// truthy extracts the output value. Missing, null, empty string, false and
// zero are rejected. Strings are returned unquoted; any other value is
// returned as its JSON text.
func truthy(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			return "", false
		}
		return s, true
	case 'n', 'f':
		return "", false
	case '{', '[', 't':
		return string(raw), true
	default:
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil || n == 0 {
			return "", false
		}
		return string(raw), true
	}
}
