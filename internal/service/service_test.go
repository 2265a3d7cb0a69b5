package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/linkshrt/internal/db/memorystorage"
	"github.com/patric-chuzhbe/linkshrt/internal/metrics"
	"github.com/patric-chuzhbe/linkshrt/internal/mockstorage"
	"github.com/patric-chuzhbe/linkshrt/internal/models"
)

const testShortURLBase = "http://localhost:5000"

var randomTokenPattern = regexp.MustCompile(`^[A-Za-z0-9]{10}$`)

type sequenceGenerator struct {
	mu     sync.Mutex
	tokens []string
	calls  int
}

func (g *sequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	tok := g.tokens[min(g.calls, len(g.tokens)-1)]
	g.calls++

	return tok
}

type countingRecorder struct {
	mu         sync.Mutex
	shorten    map[string]int
	resolve    map[string]int
	collisions int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{shorten: map[string]int{}, resolve: map[string]int{}}
}

func (r *countingRecorder) ShortenOutcome(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shorten[outcome]++
}

func (r *countingRecorder) ResolveOutcome(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolve[outcome]++
}

func (r *countingRecorder) TokenCollision() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collisions++
}

func TestShortenValidation(t *testing.T) {
	type tTestCase struct {
		name        string
		originalURL string
		customToken string
		expectedErr error
	}
	testCases := []tTestCase{
		{
			name:        "empty_original_url",
			originalURL: "",
			customToken: "",
			expectedErr: models.ErrOriginalURLRequired,
		},
		{
			name:        "empty_original_url_with_custom_token",
			originalURL: "",
			customToken: "abc",
			expectedErr: models.ErrOriginalURLRequired,
		},
		{
			name:        "custom_token_too_long",
			originalURL: "https://example.com",
			customToken: "abcdefghijk",
			expectedErr: models.ErrInvalidCustomToken,
		},
		{
			name:        "custom_token_with_dash",
			originalURL: "https://example.com",
			customToken: "abc-def",
			expectedErr: models.ErrInvalidCustomToken,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			db := &mockstorage.StorageMock{}
			s := New(db, testShortURLBase)

			short, err := s.Shorten(context.Background(), testCase.originalURL, testCase.customToken)
			assert.Empty(t, short)
			assert.ErrorIs(t, err, testCase.expectedErr)
			assert.ErrorIs(t, err, models.ErrValidation)

			db.AssertExpectations(t)
			db.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestShortenCustomToken(t *testing.T) {
	ctx := context.Background()
	db := memorystorage.New()
	s := New(db, testShortURLBase)

	short, err := s.Shorten(ctx, "https://example.com", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", short)

	full, err := s.Resolve(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", full)
}

func TestShortenCustomTokenConflictKeepsMapping(t *testing.T) {
	ctx := context.Background()
	db := memorystorage.New()
	s := New(db, testShortURLBase)

	_, err := s.Shorten(ctx, "https://first.example", "abc123")
	require.NoError(t, err)

	_, err = s.Shorten(ctx, "https://second.example", "abc123")
	assert.ErrorIs(t, err, models.ErrConflict)

	full, err := s.Resolve(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://first.example", full)
}

func TestShortenCustomTokenIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	s := New(memorystorage.New(), testShortURLBase)

	_, err := s.Shorten(ctx, "https://lower.example", "abc")
	require.NoError(t, err)

	_, err = s.Shorten(ctx, "https://upper.example", "ABC")
	require.NoError(t, err)

	full, err := s.Resolve(ctx, "ABC")
	require.NoError(t, err)
	assert.Equal(t, "https://upper.example", full)
}

func TestShortenCustomTokenRaceSurfacesAsConflict(t *testing.T) {
	ctx := context.Background()
	db := &mockstorage.StorageMock{}
	db.On("Exists", mock.Anything, "abc123").Return(false, nil).Once()
	db.On("Insert", mock.Anything, "https://example.com", "abc123").
		Return(fmt.Errorf("%w: %q", models.ErrDuplicateKey, "abc123")).
		Once()

	s := New(db, testShortURLBase)

	_, err := s.Shorten(ctx, "https://example.com", "abc123")
	assert.ErrorIs(t, err, models.ErrConflict)

	db.AssertExpectations(t)
}

func TestShortenReservedToken(t *testing.T) {
	db := &mockstorage.StorageMock{}
	s := New(db, testShortURLBase, WithReservedTokens("metrics"))

	_, err := s.Shorten(context.Background(), "https://example.com", "metrics")
	assert.ErrorIs(t, err, models.ErrConflict)

	db.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)
}

func TestShortenRandomTokenRetriesOnCollision(t *testing.T) {
	ctx := context.Background()
	db := memorystorage.New()
	require.NoError(t, db.Insert(ctx, "https://taken.example/1", "taken1"))
	require.NoError(t, db.Insert(ctx, "https://taken.example/2", "taken2"))

	generator := &sequenceGenerator{tokens: []string{"taken1", "taken2", "fresh"}}
	rec := newCountingRecorder()
	s := New(db, testShortURLBase, WithGenerator(generator), WithRecorder(rec))

	short, err := s.Shorten(ctx, "https://example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "fresh", short)
	assert.Equal(t, 3, generator.calls)
	assert.Equal(t, 2, rec.collisions)
	assert.Equal(t, 1, rec.shorten[metrics.ShortenCreated])

	full, err := db.Lookup(ctx, "taken1")
	require.NoError(t, err)
	assert.Equal(t, "https://taken.example/1", full)
}

func TestShortenRandomTokenRetriesOnInsertRace(t *testing.T) {
	ctx := context.Background()
	db := &mockstorage.StorageMock{}
	db.On("Exists", mock.Anything, "first").Return(false, nil).Once()
	db.On("Insert", mock.Anything, "https://example.com", "first").Return(models.ErrDuplicateKey).Once()
	db.On("Exists", mock.Anything, "second").Return(false, nil).Once()
	db.On("Insert", mock.Anything, "https://example.com", "second").Return(nil).Once()

	generator := &sequenceGenerator{tokens: []string{"first", "second"}}
	s := New(db, testShortURLBase, WithGenerator(generator))

	short, err := s.Shorten(ctx, "https://example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "second", short)

	db.AssertExpectations(t)
}

func TestShortenRandomTokenExhaustion(t *testing.T) {
	ctx := context.Background()
	db := memorystorage.New()
	require.NoError(t, db.Insert(ctx, "https://taken.example", "same"))

	generator := &sequenceGenerator{tokens: []string{"same"}}
	s := New(db, testShortURLBase, WithGenerator(generator), WithMaxGenerateAttempts(3))

	_, err := s.Shorten(ctx, "https://example.com", "")
	assert.ErrorIs(t, err, models.ErrTokenSpaceExhausted)
	assert.Equal(t, 3, generator.calls)
	assert.Equal(t, 1, db.Len())
}

func TestShortenPropagatesStoreErrors(t *testing.T) {
	ctx := context.Background()
	connErr := errors.New("connection refused")

	db := &mockstorage.StorageMock{}
	db.On("Exists", mock.Anything, mock.Anything).Return(false, connErr)

	rec := newCountingRecorder()
	s := New(db, testShortURLBase, WithRecorder(rec))

	_, err := s.Shorten(ctx, "https://example.com", "")
	assert.ErrorIs(t, err, connErr)
	assert.NotErrorIs(t, err, models.ErrValidation)

	_, err = s.Shorten(ctx, "https://example.com", "custom")
	assert.ErrorIs(t, err, connErr)

	assert.Equal(t, 2, rec.shorten[metrics.ShortenError])
}

func TestShortenConcurrentRandomTokensAreDistinct(t *testing.T) {
	ctx := context.Background()
	db := memorystorage.New()
	s := New(db, testShortURLBase)

	const requests = 1000
	tokens := make([]string, requests)
	errs := make([]error, requests)

	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = s.Shorten(ctx, fmt.Sprintf("https://example.com/%d", i), "")
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, requests)
	for i := 0; i < requests; i++ {
		require.NoError(t, errs[i])
		require.Regexp(t, randomTokenPattern, tokens[i])
		seen[tokens[i]] = struct{}{}
	}
	assert.Len(t, seen, requests)
	assert.Equal(t, requests, db.Len())
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	db := memorystorage.New()
	require.NoError(t, db.Insert(ctx, "", "empty"))

	rec := newCountingRecorder()
	s := New(db, testShortURLBase, WithRecorder(rec))

	full, err := s.Resolve(ctx, "empty")
	require.NoError(t, err)
	assert.Equal(t, "", full)

	_, err = s.Resolve(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.Equal(t, 1, rec.resolve[metrics.ResolveFound])
	assert.Equal(t, 1, rec.resolve[metrics.ResolveNotFound])
}

func TestResolveRejectsMalformedToken(t *testing.T) {
	db := &mockstorage.StorageMock{}
	rec := newCountingRecorder()
	s := New(db, testShortURLBase, WithRecorder(rec))

	for _, short := range []string{"docs ", "docs\t", "a-b", "abcdefghijk", ""} {
		_, err := s.Resolve(context.Background(), short)
		assert.ErrorIs(t, err, models.ErrNotFound, short)
	}

	db.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
	assert.Equal(t, 5, rec.resolve[metrics.ResolveNotFound])
}

func TestPingAndShortURL(t *testing.T) {
	db := &mockstorage.StorageMock{}
	db.On("Ping", mock.Anything).Return(nil).Once()

	s := New(db, testShortURLBase)

	assert.NoError(t, s.Ping(context.Background()))
	assert.Equal(t, "http://localhost:5000/abc", s.ShortURL("abc"))

	db.AssertExpectations(t)
}
