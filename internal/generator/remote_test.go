package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/melody-api/internal/models"
)

func TestNewRemoteGeneratorUnknownID(t *testing.T) {
	_, err := NewRemoteGenerator(NewRemoteClient("http://localhost", ""), "polyphony_rnn")
	assert.ErrorIs(t, err, ErrUnknownGenerator)
}

func TestRemoteGeneratorDetails(t *testing.T) {
	for _, id := range MelodyRNNIDs {
		gen, err := NewRemoteGenerator(NewRemoteClient("http://localhost", ""), id)
		require.NoError(t, err)

		d := gen.Details()
		assert.Equal(t, MelodyRNNFamily, d.Name)
		assert.Equal(t, id, d.ID)
		assert.NotEmpty(t, d.Description)
		assert.True(t, d.NeedsBoundaryEpsilon)
	}
}

func TestRemoteGeneratorGenerate(t *testing.T) {
	var got RemoteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		seq := got.Primer.Clone()
		seq.AddNote(models.Note{Pitch: 67, Velocity: 80, StartTime: 2.0, EndTime: 2.5})
		seq.AddNote(models.Note{Pitch: 69, Velocity: 80, StartTime: 4.5, EndTime: 5.0})
		_ = json.NewEncoder(w).Encode(map[string]any{"sequence": seq})
	}))
	defer srv.Close()

	gen, err := NewRemoteGenerator(NewRemoteClient(srv.URL, "secret"), "attention_rnn")
	require.NoError(t, err)

	out, err := gen.Generate(context.Background(), testPrimer(), testOptions(1.50001, 4.00001))
	require.NoError(t, err)

	assert.Equal(t, "attention_rnn", got.Bundle)
	assert.Equal(t, 1.0, got.Options.Temperature)
	require.Len(t, out.Notes, 4)
	assert.Equal(t, 67, out.Notes[3].Pitch)
	assert.InDelta(t, 4.00001, out.TotalTime, 1e-9)
}

func TestRemoteGeneratorServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model not loaded"}`))
	}))
	defer srv.Close()

	gen, err := NewRemoteGenerator(NewRemoteClient(srv.URL, ""), "basic_rnn")
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), testPrimer(), testOptions(1.5, 4.0))
	assert.ErrorIs(t, err, ErrRemoteGenerator)
	assert.ErrorContains(t, err, "model not loaded")
}

func TestRemoteClientWaitForHealthy(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewRemoteClient(srv.URL, "")
	client.healthInterval = time.Millisecond

	require.NoError(t, client.WaitForHealthy(context.Background()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestRemoteClientWaitForHealthyCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewRemoteClient(srv.URL, "")
	client.healthInterval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, client.WaitForHealthy(ctx))
}

func TestRemoteClientSerializesGenerate(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)

		var req RemoteRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]any{"sequence": req.Primer})
	}))
	defer srv.Close()

	client := NewRemoteClient(srv.URL, "")
	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for _, id := range []string{"basic_rnn", "lookback_rnn", "attention_rnn"} {
		gen, err := NewRemoteGenerator(client, id)
		require.NoError(t, err)

		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gen.Generate(context.Background(), testPrimer(), testOptions(1.5, 4.0))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), peak.Load())
}

func TestRemoteClientGenerateWaitsForSlot(t *testing.T) {
	client := NewRemoteClient("http://localhost", "")
	client.slot <- struct{}{}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.Generate(ctx, RemoteRequest{Bundle: "basic_rnn"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
