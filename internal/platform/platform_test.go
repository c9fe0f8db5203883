package platform

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neboloop/deeplink/internal/deeplink"
)

type recorder struct {
	mu     sync.Mutex
	events []deeplink.Event
}

func (r *recorder) Ingest(_ context.Context, ev deeplink.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) snapshot() []deeplink.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]deeplink.Event(nil), r.events...)
}

type staticStartup []string

func (s staticStartup) StartupURLs() []string { return s }

type fakeNotifier struct {
	mu  sync.Mutex
	fns map[int]func([]string)
	n   int
}

func (f *fakeNotifier) OnURLsOpened(fn func([]string)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fns == nil {
		f.fns = make(map[int]func([]string))
	}
	f.n++
	id := f.n
	f.fns[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.fns, id)
	}
}

func (f *fakeNotifier) open(urls ...string) {
	f.mu.Lock()
	fns := make([]func([]string), 0, len(f.fns))
	for _, fn := range f.fns {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(urls)
	}
}

type fakeRuntime struct {
	inbound   chan json.RawMessage
	listenErr error
	callResp  json.RawMessage
	callErr   error

	mu    sync.Mutex
	calls []string
}

func (f *fakeRuntime) Listen(_ context.Context, plugin, command string) (<-chan json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, plugin+"."+command)
	f.mu.Unlock()
	if f.listenErr != nil {
		return nil, f.listenErr
	}
	return f.inbound, nil
}

func (f *fakeRuntime) Call(_ context.Context, plugin, command string, _ any) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, plugin+"."+command)
	f.mu.Unlock()
	return f.callResp, f.callErr
}

func TestStartupIngestsDuringAttach(t *testing.T) {
	rec := &recorder{}
	s := NewStartup(staticStartup{"myapp://open?id=1"}, nil)

	require.NoError(t, s.Attach(context.Background(), rec))

	events := rec.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, []string{"myapp://open?id=1"}, events[0].URLs)
	assert.Equal(t, deeplink.SourceStartup, events[0].Source)
	assert.Equal(t, deeplink.StartupSnapshot, s.Capability())
}

func TestStartupWithoutURLsIngestsNothing(t *testing.T) {
	rec := &recorder{}
	require.NoError(t, NewStartup(staticStartup{}, nil).Attach(context.Background(), rec))
	require.NoError(t, NewStartup(nil, nil).Attach(context.Background(), rec))
	assert.Empty(t, rec.snapshot())
}

func TestStartupWithOnlyMalformedURLsIngestsNothing(t *testing.T) {
	rec := &recorder{}
	require.NoError(t, NewStartup(staticStartup{"not a url", " myapp://padded"}, nil).Attach(context.Background(), rec))
	assert.Empty(t, rec.snapshot())

	rec = &recorder{}
	require.NoError(t, NewStartup(staticStartup{"not a url", "myapp://ok"}, nil).Attach(context.Background(), rec))
	events := rec.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, []string{"myapp://ok"}, events[0].URLs)
}

func TestLiveEverySignalIsOneEvent(t *testing.T) {
	rec := &recorder{}
	n := &fakeNotifier{}
	l := NewLive(n, nil)
	require.NoError(t, l.Attach(context.Background(), rec))

	n.open("myapp://open?id=2", "myapp://open?id=3")
	n.open()

	events := rec.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, []string{"myapp://open?id=2", "myapp://open?id=3"}, events[0].URLs)
	assert.Empty(t, events[1].URLs)
	assert.Equal(t, deeplink.SourceLive, events[0].Source)
}

func TestLiveCloseDetaches(t *testing.T) {
	rec := &recorder{}
	n := &fakeNotifier{}
	l := NewLive(n, nil)
	require.NoError(t, l.Attach(context.Background(), rec))
	require.NoError(t, l.Close())

	n.open("myapp://late")
	assert.Empty(t, rec.snapshot())
}

func TestLiveWithoutNotifierFails(t *testing.T) {
	err := NewLive(nil, nil).Attach(context.Background(), &recorder{})
	assert.ErrorIs(t, err, deeplink.ErrRegistration)
}

func TestLiveHandlerSurvivesSetupContext(t *testing.T) {
	rec := &recorder{}
	n := &fakeNotifier{}
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, NewLive(n, nil).Attach(ctx, rec))
	cancel()

	n.open("myapp://after-setup")
	assert.Len(t, rec.snapshot(), 1)
}

func TestBridgeIngestsDecodedPayloads(t *testing.T) {
	rt := &fakeRuntime{inbound: make(chan json.RawMessage, 8)}
	rec := &recorder{}
	b := NewBridge(rt, "", nil)
	require.NoError(t, b.Attach(context.Background(), rec))

	rt.inbound <- json.RawMessage(`{"url":"myapp://open?id=9"}`)
	rt.inbound <- json.RawMessage(`{}`)
	rt.inbound <- json.RawMessage(`{"url":null}`)
	rt.inbound <- json.RawMessage(`not json`)
	rt.inbound <- json.RawMessage(`{"url":"no scheme"}`)
	rt.inbound <- json.RawMessage(`{"urls":["myapp://a",7,"myapp://b"]}`)
	close(rt.inbound)
	b.Wait()

	events := rec.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, []string{"myapp://open?id=9"}, events[0].URLs)
	assert.Equal(t, []string{"myapp://a", "myapp://b"}, events[1].URLs)
	assert.Equal(t, `["myapp://a",null,"myapp://b"]`, events[1].LegacyPayload())
	assert.Equal(t, deeplink.SourceBridge, events[0].Source)
	assert.Equal(t, []string{DefaultPlugin + "." + CommandSetEventHandler}, rt.calls)
}

func TestBridgeRegistrationFailureIsFatal(t *testing.T) {
	rt := &fakeRuntime{listenErr: errors.New("plugin not found")}
	err := NewBridge(rt, "app.test", nil).Attach(context.Background(), &recorder{})
	require.Error(t, err)
	assert.ErrorIs(t, err, deeplink.ErrRegistration)
	assert.Contains(t, err.Error(), "plugin not found")

	err = NewBridge(nil, "", nil).Attach(context.Background(), &recorder{})
	assert.ErrorIs(t, err, deeplink.ErrRegistration)
}

func TestBridgeFetchLastLink(t *testing.T) {
	rt := &fakeRuntime{callResp: json.RawMessage(`{"url":"myapp://cold-start"}`)}
	b := NewBridge(rt, "app.test", nil)

	ev, ok := b.FetchLastLink(context.Background())
	require.True(t, ok)
	assert.Equal(t, []string{"myapp://cold-start"}, ev.URLs)
	assert.Equal(t, deeplink.SourceForeignQuery, ev.Source)
	assert.Equal(t, []string{"app.test." + CommandGetLastLink}, rt.calls)
}

func TestBridgeFetchFailureIsNone(t *testing.T) {
	for name, rt := range map[string]*fakeRuntime{
		"call error": {callErr: errors.New("bridge down")},
		"no url":     {callResp: json.RawMessage(`{"url":null}`)},
		"garbage":    {callResp: json.RawMessage(`[`)},
	} {
		_, ok := NewBridge(rt, "", nil).FetchLastLink(context.Background())
		assert.False(t, ok, name)
	}
	_, ok := NewBridge(nil, "", nil).FetchLastLink(context.Background())
	assert.False(t, ok)
}

func TestBridgeMalformedPayloadNeverReachesCache(t *testing.T) {
	rt := &fakeRuntime{inbound: make(chan json.RawMessage, 2)}
	d := deeplink.New(deeplink.WithSyncDelivery())
	defer d.Close()

	published := 0
	d.Subscribe(func(context.Context, deeplink.Event) error {
		published++
		return nil
	})

	b := NewBridge(rt, "", nil)
	require.NoError(t, d.Setup(context.Background(), b))

	rt.inbound <- json.RawMessage(`{"uri":"myapp://typo"}`)
	close(rt.inbound)
	b.Wait()

	_, ok := d.GetLastLink(context.Background())
	assert.False(t, ok)
	assert.Equal(t, 0, published)
}

func TestBridgeEndToEndWithFallback(t *testing.T) {
	rt := &fakeRuntime{
		inbound:  make(chan json.RawMessage, 1),
		callResp: json.RawMessage(`{"url":"myapp://pre-registration"}`),
	}
	d := deeplink.New()
	defer d.Close()

	got := make(chan []string, 1)
	d.Subscribe(func(_ context.Context, ev deeplink.Event) error {
		got <- ev.URLs
		return nil
	})

	require.NoError(t, d.Setup(context.Background(), NewBridge(rt, "", nil)))

	urls, ok := d.GetLastLink(context.Background())
	require.True(t, ok)
	assert.Equal(t, []string{"myapp://pre-registration"}, urls)

	rt.inbound <- json.RawMessage(`{"url":"myapp://live"}`)
	select {
	case urls := <-got:
		assert.Equal(t, []string{"myapp://live"}, urls)
	case <-time.After(time.Second):
		t.Fatal("bridge event not published")
	}

	urls, _ = d.GetLastLink(context.Background())
	assert.Equal(t, []string{"myapp://live"}, urls)
}

func TestDecodePayload(t *testing.T) {
	_, ok := DecodePayload(deeplink.SourceBridge, nil)
	assert.False(t, ok)

	_, ok = DecodePayload(deeplink.SourceBridge, json.RawMessage(`{"urls":["bad"]}`))
	assert.False(t, ok)

	ev, ok := DecodePayload(deeplink.SourceBridge, json.RawMessage(`{"urls":["myapp://1","myapp://1"]}`))
	require.True(t, ok)
	assert.Equal(t, []string{"myapp://1", "myapp://1"}, ev.URLs)
}
