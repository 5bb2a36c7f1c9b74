package pipeline

import (
	"context"
	"time"

	"github.com/sells-group/recommend-consensus/internal/cache"
	"github.com/sells-group/recommend-consensus/internal/geocode"
	"github.com/sells-group/recommend-consensus/internal/llm"
	"github.com/sells-group/recommend-consensus/internal/model"
	"github.com/sells-group/recommend-consensus/internal/places"
)

// fakeProvider is a hand-written test double for llm.Provider, in the
// teacher's style of narrow fakes over mock-generator output.
type fakeProvider struct {
	name      string
	available bool
	elapsed   time.Duration

	generateResult model.ProviderResult
	generateErr    error

	validateResult model.CrossValidationResult
	validateErr    error

	synthesizeEntries []llm.SynthesizedEntry
	synthesizeErr     error

	generateCalls int
}

func (f *fakeProvider) Name() string                         { return f.name }
func (f *fakeProvider) IsAvailable(_ llm.RequestContext) bool { return f.available }

func (f *fakeProvider) Generate(_ context.Context, _ llm.GenerateRequest) (model.ProviderResult, error) {
	f.generateCalls++
	if f.generateErr != nil {
		return model.ProviderResult{}, f.generateErr
	}
	r := f.generateResult
	r.ProviderName = f.name
	r.Elapsed = f.elapsed
	return r, nil
}

func (f *fakeProvider) Validate(_ context.Context, _ llm.ValidateRequest) (model.CrossValidationResult, error) {
	if f.validateErr != nil {
		return model.CrossValidationResult{}, f.validateErr
	}
	return f.validateResult, nil
}

func (f *fakeProvider) Synthesize(_ context.Context, _ llm.SynthesizeRequest) ([]llm.SynthesizedEntry, error) {
	if f.synthesizeErr != nil {
		return nil, f.synthesizeErr
	}
	return f.synthesizeEntries, nil
}

// fakeGeocoder is a hand-written test double for geocode.Geocoder.
type fakeGeocoder struct {
	forwardResult *geocode.Result
	forwardErr    error
	reverseName   string
	reverseErr    error
}

func (f *fakeGeocoder) Forward(_ context.Context, _ string) (*geocode.Result, error) {
	return f.forwardResult, f.forwardErr
}

func (f *fakeGeocoder) Reverse(_ context.Context, _, _ float64) (string, error) {
	return f.reverseName, f.reverseErr
}

// fakePlaces is a hand-written test double for places.Provider.
type fakePlaces struct {
	nearby []model.Place
	err    error
}

func (f *fakePlaces) Nearby(_ context.Context, _ places.Query) ([]model.Place, error) {
	return f.nearby, f.err
}

// memCacheStore is a minimal in-memory cache.Store fake used by pipeline tests.
type memCacheStore struct {
	data map[string][]byte
}

func newMemCacheStore() *memCacheStore { return &memCacheStore{data: make(map[string][]byte)} }

func (m *memCacheStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCacheStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *memCacheStore) DeleteExpired(_ context.Context) (int, error) { return 0, nil }
func (m *memCacheStore) Stats(_ context.Context) (cache.Stats, error) {
	return cache.Stats{}, nil
}
func (m *memCacheStore) Close() error { return nil }
