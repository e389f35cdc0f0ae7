package routing

import (
	"context"
	"errors"
	"testing"
	"time"

	"sentinel-hq/sentinel/pkg/breaker"
	"sentinel-hq/sentinel/pkg/providers"
	"sentinel-hq/sentinel/pkg/retry"
)

// fakeProvider scripts per-call outcomes for router tests.
type fakeProvider struct {
	name     string
	calls    int
	complete func(call int) (*providers.CompletionResponse, error)
	stream   func(call int) (<-chan providers.StreamChunk, error)
}

func (f *fakeProvider) Complete(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	f.calls++
	return f.complete(f.calls)
}

func (f *fakeProvider) Stream(ctx context.Context, req *providers.CompletionRequest) (<-chan providers.StreamChunk, error) {
	f.calls++
	return f.stream(f.calls)
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Type() string { return providers.TypeOpenAI }
func (f *fakeProvider) Close() error { return nil }

func succeeding(name, content string) *fakeProvider {
	return &fakeProvider{
		name: name,
		complete: func(int) (*providers.CompletionResponse, error) {
			return &providers.CompletionResponse{Content: content, Provider: name}, nil
		},
	}
}

func failing(name string, status int) *fakeProvider {
	return &fakeProvider{
		name: name,
		complete: func(int) (*providers.CompletionResponse, error) {
			return nil, &providers.ProviderError{Provider: name, StatusCode: status, Message: "down"}
		},
	}
}

// trip feeds the breaker one counted failure; with threshold 1 that
// opens it.
func trip(t *testing.T, b *breaker.Breaker) {
	t.Helper()
	adm, err := b.Allow()
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	adm.Failure()
}

func newRouter(failover bool, order []string, provs ...*fakeProvider) *Router {
	m := make(map[string]providers.Provider, len(provs))
	for _, p := range provs {
		m[p.name] = p
	}
	table := breaker.NewTable(3, time.Minute, nil, nil)
	policy := retry.NewPolicy(1, time.Millisecond, time.Millisecond, 0, nil)
	return New(m, order, table, policy, failover, nil)
}

func TestComplete_UsesPreferenceOrder(t *testing.T) {
	primary := succeeding("openai", "from openai")
	secondary := succeeding("anthropic", "from anthropic")
	r := newRouter(true, []string{"openai", "anthropic"}, primary, secondary)

	resp, err := r.Complete(context.Background(), "", &providers.CompletionRequest{Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Provider != "openai" {
		t.Errorf("served by %q, want the first preference", resp.Provider)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary called %d times, want 0", secondary.calls)
	}
}

func TestComplete_HintOverridesOrder(t *testing.T) {
	primary := succeeding("openai", "a")
	secondary := succeeding("anthropic", "b")
	r := newRouter(true, []string{"openai", "anthropic"}, primary, secondary)

	resp, err := r.Complete(context.Background(), "anthropic", &providers.CompletionRequest{Model: "claude"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Provider != "anthropic" {
		t.Errorf("served by %q, want hinted provider", resp.Provider)
	}
	if primary.calls != 0 {
		t.Error("hint must not fall back to preference order")
	}
}

func TestComplete_UnknownHintFails(t *testing.T) {
	r := newRouter(true, []string{"openai"}, succeeding("openai", "a"))

	_, err := r.Complete(context.Background(), "nonexistent", &providers.CompletionRequest{})
	var npErr *NoProviderError
	if !errors.As(err, &npErr) {
		t.Fatalf("want NoProviderError, got %v", err)
	}
}

func TestComplete_FailsOverOnProviderFailure(t *testing.T) {
	primary := failing("openai", 503)
	secondary := succeeding("anthropic", "rescued")
	r := newRouter(true, []string{"openai", "anthropic"}, primary, secondary)

	resp, err := r.Complete(context.Background(), "", &providers.CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "rescued" {
		t.Errorf("content = %q, want failover result", resp.Content)
	}
}

func TestComplete_NoFailoverOnRequestLevelError(t *testing.T) {
	primary := failing("openai", 400)
	secondary := succeeding("anthropic", "should not serve")
	r := newRouter(true, []string{"openai", "anthropic"}, primary, secondary)

	_, err := r.Complete(context.Background(), "", &providers.CompletionRequest{})
	if err == nil {
		t.Fatal("want error")
	}
	if secondary.calls != 0 {
		t.Error("request-level 400 must not trigger failover")
	}
}

func TestComplete_FailoverDisabled(t *testing.T) {
	primary := failing("openai", 503)
	secondary := succeeding("anthropic", "x")
	r := newRouter(false, []string{"openai", "anthropic"}, primary, secondary)

	_, err := r.Complete(context.Background(), "", &providers.CompletionRequest{})
	if err == nil {
		t.Fatal("want error with failover disabled")
	}
	if secondary.calls != 0 {
		t.Error("failover disabled but secondary was called")
	}
}

func TestComplete_BreakerSeesOneSignalPerCall(t *testing.T) {
	// Retry budget of 3 attempts; the provider fails twice then succeeds.
	// The breaker must observe one success and zero failures.
	p := &fakeProvider{
		name: "openai",
		complete: func(call int) (*providers.CompletionResponse, error) {
			if call < 3 {
				return nil, &providers.ProviderError{Provider: "openai", StatusCode: 502}
			}
			return &providers.CompletionResponse{Content: "third time lucky"}, nil
		},
	}
	m := map[string]providers.Provider{"openai": p}
	table := breaker.NewTable(2, time.Minute, nil, nil)
	policy := retry.NewPolicy(3, time.Millisecond, time.Millisecond, 0, nil)
	r := New(m, []string{"openai"}, table, policy, false, nil)

	resp, err := r.Complete(context.Background(), "", &providers.CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "third time lucky" {
		t.Errorf("content = %q", resp.Content)
	}
	if p.calls != 3 {
		t.Errorf("provider attempts = %d, want 3", p.calls)
	}

	b := table.Get("openai")
	// Two intermediate failures with threshold 2 would have opened the
	// breaker if counted individually.
	if b.State() != breaker.StateClosed {
		t.Errorf("breaker state = %s, want closed", b.State())
	}
	if b.Failures() != 0 {
		t.Errorf("breaker failures = %d, want 0", b.Failures())
	}
}

func TestComplete_OpenBreakerShortCircuits(t *testing.T) {
	p := failing("openai", 503)
	m := map[string]providers.Provider{"openai": p}
	table := breaker.NewTable(1, time.Minute, nil, nil)
	policy := retry.NewPolicy(1, time.Millisecond, time.Millisecond, 0, nil)
	r := New(m, []string{"openai"}, table, policy, false, nil)

	// Trip the breaker.
	r.Complete(context.Background(), "", &providers.CompletionRequest{})
	callsBefore := p.calls

	_, err := r.Complete(context.Background(), "", &providers.CompletionRequest{})
	var openErr *breaker.OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("want OpenError, got %v", err)
	}
	if p.calls != callsBefore {
		t.Error("short-circuited call still reached the provider")
	}
}

func TestComplete_AllFailed(t *testing.T) {
	r := newRouter(true, []string{"openai", "anthropic"},
		failing("openai", 503), failing("anthropic", 500))

	_, err := r.Complete(context.Background(), "", &providers.CompletionRequest{})
	var allErr *AllFailedError
	if !errors.As(err, &allErr) {
		t.Fatalf("want AllFailedError, got %v", err)
	}
	if len(allErr.Attempted) != 2 {
		t.Errorf("attempted = %v, want both providers", allErr.Attempted)
	}
}

func TestComplete_RequestErrorFreesHalfOpenProbe(t *testing.T) {
	// Call 1 trips the breaker; call 2 is the probe and comes back 400;
	// call 3 finds a healthy provider. The 400 is the caller's fault, so
	// the probe slot must be handed back and call 3 admitted as the next
	// probe instead of the breaker wedging half-open.
	p := &fakeProvider{
		name: "openai",
		complete: func(call int) (*providers.CompletionResponse, error) {
			switch call {
			case 1:
				return nil, &providers.ProviderError{Provider: "openai", StatusCode: 503, Message: "down"}
			case 2:
				return nil, &providers.ProviderError{Provider: "openai", StatusCode: 400, Message: "bad request"}
			default:
				return &providers.CompletionResponse{Content: "recovered", Provider: "openai"}, nil
			}
		},
	}
	m := map[string]providers.Provider{"openai": p}
	table := breaker.NewTable(1, 10*time.Millisecond, nil, nil)
	policy := retry.NewPolicy(1, time.Millisecond, time.Millisecond, 0, nil)
	r := New(m, []string{"openai"}, table, policy, false, nil)

	r.Complete(context.Background(), "", &providers.CompletionRequest{})
	if table.Get("openai").State() != breaker.StateOpen {
		t.Fatal("breaker should be open after the 503")
	}
	time.Sleep(20 * time.Millisecond)

	if _, err := r.Complete(context.Background(), "", &providers.CompletionRequest{}); err == nil {
		t.Fatal("want the request-level error surfaced")
	}

	resp, err := r.Complete(context.Background(), "", &providers.CompletionRequest{})
	if err != nil {
		t.Fatalf("probe slot wedged after request-level error: %v", err)
	}
	if resp.Content != "recovered" {
		t.Errorf("content = %q, want %q", resp.Content, "recovered")
	}
	if p.calls != 3 {
		t.Errorf("provider calls = %d, want 3", p.calls)
	}
}

// ===== Streaming tests =====

func scriptedStream(chunks ...providers.StreamChunk) func(int) (<-chan providers.StreamChunk, error) {
	return func(int) (<-chan providers.StreamChunk, error) {
		ch := make(chan providers.StreamChunk, len(chunks))
		for _, c := range chunks {
			ch <- c
		}
		close(ch)
		return ch, nil
	}
}

func TestStream_CleanTerminalCountsAsSuccess(t *testing.T) {
	p := &fakeProvider{
		name: "openai",
		stream: func(int) (<-chan providers.StreamChunk, error) {
			return scriptedStream(
				providers.StreamChunk{Delta: "hi"},
				providers.StreamChunk{Done: true},
			)(0)
		},
	}
	m := map[string]providers.Provider{"openai": p}
	table := breaker.NewTable(1, time.Minute, nil, nil)
	policy := retry.NewPolicy(1, time.Millisecond, time.Millisecond, 0, nil)
	r := New(m, []string{"openai"}, table, policy, true, nil)

	name, chunks, err := r.Stream(context.Background(), "", &providers.CompletionRequest{})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if name != "openai" {
		t.Errorf("provider = %q", name)
	}
	for range chunks {
	}
	if table.Get("openai").State() != breaker.StateClosed {
		t.Error("clean stream should leave breaker closed")
	}
}

func TestStream_ErrorTerminalCountsAsOneFailure(t *testing.T) {
	p := &fakeProvider{
		name: "openai",
		stream: func(int) (<-chan providers.StreamChunk, error) {
			return scriptedStream(
				providers.StreamChunk{Delta: "partial"},
				providers.StreamChunk{Done: true, Err: &providers.StreamError{Provider: "openai", Message: "cut"}},
			)(0)
		},
	}
	m := map[string]providers.Provider{"openai": p}
	table := breaker.NewTable(2, time.Minute, nil, nil)
	policy := retry.NewPolicy(1, time.Millisecond, time.Millisecond, 0, nil)
	r := New(m, []string{"openai"}, table, policy, true, nil)

	_, chunks, err := r.Stream(context.Background(), "", &providers.CompletionRequest{})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	for range chunks {
	}

	b := table.Get("openai")
	if b.Failures() != 1 {
		t.Errorf("breaker failures = %d, want exactly 1", b.Failures())
	}
}

func TestStream_NoFailoverAcrossProviders(t *testing.T) {
	primary := &fakeProvider{
		name: "openai",
		stream: func(int) (<-chan providers.StreamChunk, error) {
			return nil, &providers.ProviderError{Provider: "openai", StatusCode: 503}
		},
	}
	secondary := &fakeProvider{
		name:   "anthropic",
		stream: scriptedStream(providers.StreamChunk{Done: true}),
	}
	m := map[string]providers.Provider{"openai": primary, "anthropic": secondary}
	table := breaker.NewTable(3, time.Minute, nil, nil)
	policy := retry.NewPolicy(1, time.Millisecond, time.Millisecond, 0, nil)
	r := New(m, []string{"openai", "anthropic"}, table, policy, true, nil)

	_, _, err := r.Stream(context.Background(), "", &providers.CompletionRequest{})
	if err == nil {
		t.Fatal("want error when the selected stream provider fails")
	}
	if secondary.calls != 0 {
		t.Error("streams must not fail over to another provider")
	}
}

// hangingProvider streams one delta and then holds the channel open
// until the call's context is canceled, like a live upstream whose
// reader walked away mid-answer.
type hangingProvider struct {
	name  string
	calls int
}

func (p *hangingProvider) Complete(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	return nil, &providers.ProviderError{Provider: p.name, Message: "streaming only"}
}

func (p *hangingProvider) Stream(ctx context.Context, req *providers.CompletionRequest) (<-chan providers.StreamChunk, error) {
	p.calls++
	ch := make(chan providers.StreamChunk)
	go func() {
		defer close(ch)
		ch <- providers.StreamChunk{Delta: "partial"}
		<-ctx.Done()
		ch <- providers.StreamChunk{Done: true, Err: &providers.StreamError{
			Provider: p.name, Message: "stream aborted", Cause: ctx.Err(),
		}}
	}()
	return ch, nil
}

func (p *hangingProvider) Name() string { return p.name }
func (p *hangingProvider) Type() string { return providers.TypeOpenAI }
func (p *hangingProvider) Close() error { return nil }

func TestStream_ClientDisconnectReleasesRelayAndBreaker(t *testing.T) {
	p := &hangingProvider{name: "openai"}
	m := map[string]providers.Provider{"openai": p}
	table := breaker.NewTable(2, time.Minute, nil, nil)
	policy := retry.NewPolicy(1, time.Millisecond, time.Millisecond, 0, nil)
	r := New(m, []string{"openai"}, table, policy, true, nil)

	// Well past the failure threshold: disconnects must not accumulate.
	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		_, chunks, err := r.Stream(ctx, "", &providers.CompletionRequest{})
		if err != nil {
			t.Fatalf("Stream %d: %v", i, err)
		}
		<-chunks
		cancel()

		// The relay must wind down instead of lingering on the
		// abandoned channel.
		drained := make(chan struct{})
		go func() {
			for range chunks {
			}
			close(drained)
		}()
		select {
		case <-drained:
		case <-time.After(2 * time.Second):
			t.Fatal("stream relay did not shut down after cancellation")
		}
	}

	b := table.Get("openai")
	if b.State() != breaker.StateClosed {
		t.Errorf("breaker state = %s after client disconnects, want closed", b.State())
	}
	if b.Failures() != 0 {
		t.Errorf("breaker failures = %d after client disconnects, want 0", b.Failures())
	}
}

func TestStream_OpenBreakerSkippedDuringSelection(t *testing.T) {
	primary := &fakeProvider{name: "openai"}
	secondary := &fakeProvider{
		name:   "anthropic",
		stream: scriptedStream(providers.StreamChunk{Delta: "ok"}, providers.StreamChunk{Done: true}),
	}
	m := map[string]providers.Provider{"openai": primary, "anthropic": secondary}
	table := breaker.NewTable(1, time.Minute, nil, nil)
	trip(t, table.Get("openai"))
	policy := retry.NewPolicy(1, time.Millisecond, time.Millisecond, 0, nil)
	r := New(m, []string{"openai", "anthropic"}, table, policy, true, nil)

	name, chunks, err := r.Stream(context.Background(), "", &providers.CompletionRequest{})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if name != "anthropic" {
		t.Errorf("selected %q, want the healthy provider", name)
	}
	for range chunks {
	}
}
