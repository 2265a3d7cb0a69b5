// Package service holds the shortening and redirect logic shared by every front-end.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/linkshrt/internal/metrics"
	"github.com/patric-chuzhbe/linkshrt/internal/models"
	"github.com/patric-chuzhbe/linkshrt/internal/token"
)

// DefaultMaxGenerateAttempts bounds the random token retry loop.
const DefaultMaxGenerateAttempts = 10

type urlsMapper interface {
	Exists(ctx context.Context, token string) (bool, error)
	Insert(ctx context.Context, originalURL, token string) error
	Lookup(ctx context.Context, token string) (string, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	urlsMapper
	pinger
}

type tokenGenerator interface {
	Generate() string
}

type recorder interface {
	ShortenOutcome(outcome string)
	ResolveOutcome(outcome string)
	TokenCollision()
}

type nopRecorder struct{}

func (nopRecorder) ShortenOutcome(string) {}
func (nopRecorder) ResolveOutcome(string) {}
func (nopRecorder) TokenCollision()       {}

type Service struct {
	db                  storage
	generator           tokenGenerator
	recorder            recorder
	shortURLBase        string
	maxGenerateAttempts int
	reservedTokens      []string
}

type initOptions struct {
	generator           tokenGenerator
	recorder            recorder
	maxGenerateAttempts int
	reservedTokens      []string
}

// InitOption defines a functional option for New.
type InitOption func(*initOptions)

// WithGenerator replaces the random token source.
func WithGenerator(generator tokenGenerator) InitOption {
	return func(options *initOptions) {
		options.generator = generator
	}
}

// WithRecorder reports shorten and resolve outcomes to the given metrics sink.
func WithRecorder(r recorder) InitOption {
	return func(options *initOptions) {
		options.recorder = r
	}
}

// WithMaxGenerateAttempts sets how many random tokens are tried before giving up.
func WithMaxGenerateAttempts(attempts int) InitOption {
	return func(options *initOptions) {
		options.maxGenerateAttempts = attempts
	}
}

// WithReservedTokens makes the given custom tokens unavailable, e.g. names of front-end routes.
func WithReservedTokens(tokens ...string) InitOption {
	return func(options *initOptions) {
		options.reservedTokens = append(options.reservedTokens, tokens...)
	}
}

func New(
	db storage,
	shortURLBase string,
	optionsProto ...InitOption,
) *Service {
	options := &initOptions{
		generator:           token.NewGenerator(token.DefaultLength),
		recorder:            nopRecorder{},
		maxGenerateAttempts: DefaultMaxGenerateAttempts,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}
	if options.maxGenerateAttempts <= 0 {
		options.maxGenerateAttempts = DefaultMaxGenerateAttempts
	}

	return &Service{
		db:                  db,
		generator:           options.generator,
		recorder:            options.recorder,
		shortURLBase:        shortURLBase,
		maxGenerateAttempts: options.maxGenerateAttempts,
		reservedTokens:      options.reservedTokens,
	}
}

// Shorten stores originalURL under customToken, or under a freshly generated token
// when customToken is empty, and returns the token.
func (s *Service) Shorten(ctx context.Context, originalURL, customToken string) (string, error) {
	short, err := s.shorten(ctx, originalURL, customToken)

	switch {
	case err == nil:
		s.recorder.ShortenOutcome(metrics.ShortenCreated)
	case errors.Is(err, models.ErrValidation):
		s.recorder.ShortenOutcome(metrics.ShortenInvalid)
	case errors.Is(err, models.ErrConflict):
		s.recorder.ShortenOutcome(metrics.ShortenConflict)
	default:
		s.recorder.ShortenOutcome(metrics.ShortenError)
	}

	return short, err
}

func (s *Service) shorten(ctx context.Context, originalURL, customToken string) (string, error) {
	if originalURL == "" {
		return "", models.ErrOriginalURLRequired
	}

	if customToken != "" {
		return s.shortenWithCustomToken(ctx, originalURL, customToken)
	}

	return s.shortenWithRandomToken(ctx, originalURL)
}

func (s *Service) shortenWithCustomToken(ctx context.Context, originalURL, customToken string) (string, error) {
	if !token.ValidateCustom(customToken) {
		return "", models.ErrInvalidCustomToken
	}

	if funk.ContainsString(s.reservedTokens, customToken) {
		return "", models.ErrConflict
	}

	exists, err := s.db.Exists(ctx, customToken)
	if err != nil {
		return "", fmt.Errorf(
			"in internal/service/service.go/shortenWithCustomToken(): error while `s.db.Exists()` calling: %w",
			err,
		)
	}
	if exists {
		return "", models.ErrConflict
	}

	err = s.db.Insert(ctx, originalURL, customToken)
	if errors.Is(err, models.ErrDuplicateKey) {
		return "", models.ErrConflict
	}
	if err != nil {
		return "", fmt.Errorf(
			"in internal/service/service.go/shortenWithCustomToken(): error while `s.db.Insert()` calling: %w",
			err,
		)
	}

	return customToken, nil
}

func (s *Service) shortenWithRandomToken(ctx context.Context, originalURL string) (string, error) {
	for i := 0; i < s.maxGenerateAttempts; i++ {
		candidate := s.generator.Generate()

		exists, err := s.db.Exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf(
				"in internal/service/service.go/shortenWithRandomToken(): error while `s.db.Exists()` calling: %w",
				err,
			)
		}
		if exists || funk.ContainsString(s.reservedTokens, candidate) {
			s.recorder.TokenCollision()
			continue
		}

		err = s.db.Insert(ctx, originalURL, candidate)
		if errors.Is(err, models.ErrDuplicateKey) {
			s.recorder.TokenCollision()
			continue
		}
		if err != nil {
			return "", fmt.Errorf(
				"in internal/service/service.go/shortenWithRandomToken(): error while `s.db.Insert()` calling: %w",
				err,
			)
		}

		return candidate, nil
	}

	return "", models.ErrTokenSpaceExhausted
}

// Resolve returns the destination stored under the token or models.ErrNotFound.
// Strings that no token can equal are answered without touching the store,
// since MySQL comparisons ignore trailing spaces.
func (s *Service) Resolve(ctx context.Context, short string) (string, error) {
	if !token.ValidateCustom(short) {
		s.recorder.ResolveOutcome(metrics.ResolveNotFound)
		return "", models.ErrNotFound
	}

	originalURL, err := s.db.Lookup(ctx, short)

	switch {
	case err == nil:
		s.recorder.ResolveOutcome(metrics.ResolveFound)
	case errors.Is(err, models.ErrNotFound):
		s.recorder.ResolveOutcome(metrics.ResolveNotFound)
	default:
		s.recorder.ResolveOutcome(metrics.ResolveError)
	}

	return originalURL, err
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// ShortURL formats a token into the public short link.
func (s *Service) ShortURL(short string) string {
	return s.shortURLBase + "/" + short
}
