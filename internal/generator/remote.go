package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/Conceptual-Machines/melody-api/internal/models"
	"github.com/Conceptual-Machines/melody-api/internal/window"
)

const MelodyRNNFamily = "melody_rnn_sequence_generator"

// MelodyRNNIDs are the melody RNN configurations served by the generator server
var MelodyRNNIDs = []string{"basic_rnn", "lookback_rnn", "attention_rnn", "mono_rnn"}

var melodyRNNDescriptions = map[string]string{
	"basic_rnn":     "Melody RNN with one-hot encoding",
	"lookback_rnn":  "Melody RNN with lookback encoding",
	"attention_rnn": "Melody RNN with lookback encoding and attention",
	"mono_rnn":      "Monophonic melody RNN over the full MIDI pitch range",
}

// ErrRemoteGenerator wraps failures reported by the generator server
var ErrRemoteGenerator = errors.New("remote generator error")

// RemoteClient talks to an HTTP server hosting trained melody models.
// Generate calls are serialized: the server runs one generation at a time.
type RemoteClient struct {
	baseURL        string
	apiKey         string
	http           *http.Client
	healthInterval time.Duration

	// one slot, held for the duration of a generate call
	slot chan struct{}
}

// NewRemoteClient creates a client for the generator server at baseURL
func NewRemoteClient(baseURL, apiKey string) *RemoteClient {
	return &RemoteClient{
		baseURL:        baseURL,
		apiKey:         apiKey,
		http:           &http.Client{Timeout: 120 * time.Second},
		healthInterval: 5 * time.Second,
		slot:           make(chan struct{}, 1),
	}
}

// RemoteRequest is the body of a generate call
type RemoteRequest struct {
	Bundle  string               `json:"bundle"`
	Primer  *models.NoteSequence `json:"primer"`
	Options *Options             `json:"options"`
}

type remoteResponse struct {
	Sequence *models.NoteSequence `json:"sequence"`
	Error    string               `json:"error,omitempty"`
}

// WaitForHealthy blocks until the server answers its health check
func (c *RemoteClient) WaitForHealthy(ctx context.Context) error {
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
		if err != nil {
			return fmt.Errorf("create health request: %w", err)
		}

		resp, err := c.http.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		log.Printf("⏳ Generator server not ready, retrying in %s", c.healthInterval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.healthInterval):
		}
	}
}

// Generate runs bundle on the server and returns the generated sequence.
// It waits for any in-flight call to finish first.
func (c *RemoteClient) Generate(ctx context.Context, req RemoteRequest) (*models.NoteSequence, error) {
	select {
	case c.slot <- struct{}{}:
		defer func() { <-c.slot }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call generator server: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var result remoteResponse
	if err := json.Unmarshal(data, &result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: status %d: %s", ErrRemoteGenerator, resp.StatusCode, truncateBody(data))
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || result.Error != "" {
		return nil, fmt.Errorf("%w: status %d: %s", ErrRemoteGenerator, resp.StatusCode, result.Error)
	}
	if result.Sequence == nil {
		return nil, fmt.Errorf("%w: response has no sequence", ErrRemoteGenerator)
	}
	return result.Sequence, nil
}

func truncateBody(b []byte) string {
	const maxLen = 200
	if len(b) > maxLen {
		return string(b[:maxLen]) + "..."
	}
	return string(b)
}

// RemoteGenerator runs one melody RNN configuration on the generator server
type RemoteGenerator struct {
	client *RemoteClient
	id     string
}

// NewRemoteGenerator returns the generator for a melody RNN configuration id
func NewRemoteGenerator(client *RemoteClient, id string) (*RemoteGenerator, error) {
	if _, ok := melodyRNNDescriptions[id]; !ok {
		return nil, fmt.Errorf("%w: %q is not a melody RNN configuration", ErrUnknownGenerator, id)
	}
	return &RemoteGenerator{client: client, id: id}, nil
}

// Details describes the configuration. The server's models need the epsilon
// shift to start generating on the step after the primer.
func (g *RemoteGenerator) Details() Details {
	return Details{
		Name:                 MelodyRNNFamily,
		ID:                   g.id,
		Description:          melodyRNNDescriptions[g.id],
		StepsPerQuarter:      window.DefaultStepsPerQuarter,
		NeedsBoundaryEpsilon: true,
	}
}

// Generate sends the primer to the server and keeps only continuation notes
// inside the requested section.
func (g *RemoteGenerator) Generate(
	ctx context.Context, primer *models.NoteSequence, opts *Options,
) (*models.NoteSequence, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if primer == nil {
		primer = &models.NoteSequence{}
	}

	start := time.Now()
	seq, err := g.client.Generate(ctx, RemoteRequest{Bundle: g.id, Primer: primer, Options: opts})
	if err != nil {
		return nil, err
	}

	section := opts.GenerateSections[0]
	out := appendContinuation(primer, seq, section)
	if out.TotalTime < section.End {
		out.TotalTime = section.End
	}

	log.Printf("🎼 %s generated %d notes in %s", g.id, len(out.Notes)-len(primer.Notes), time.Since(start))
	return out, nil
}

// WaitForHealthy blocks until the generator server is ready
func (g *RemoteGenerator) WaitForHealthy(ctx context.Context) error {
	return g.client.WaitForHealthy(ctx)
}
