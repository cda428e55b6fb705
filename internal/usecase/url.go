package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/vadimbarashkov/swooosh/internal/entity"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const maxRetries = 5

var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating id")

type urlRepository interface {
	Save(ctx context.Context, id, originalURL string) (*entity.URL, error)
	RetrieveByID(ctx context.Context, id string) (*entity.URL, error)
	IncrementClicks(ctx context.Context, id string) (*entity.URL, error)
}

type URLUseCase struct {
	urlRepo  urlRepository
	idLength int
}

func NewURLUseCase(urlRepo urlRepository, idLength int) *URLUseCase {
	return &URLUseCase{
		urlRepo:  urlRepo,
		idLength: idLength,
	}
}

// ShortenURL stores originalURL under a fresh random id. Each collision makes
// the next candidate one character longer.
func (uc *URLUseCase) ShortenURL(ctx context.Context, originalURL string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ShortenURL"

	length := uc.idLength

	for i := 0; i < maxRetries; i++ {
		id, err := gonanoid.New(length)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to generate id: %w", op, err)
		}

		url, err := uc.urlRepo.Save(ctx, id, originalURL)
		if err != nil {
			if errors.Is(err, entity.ErrIDExists) {
				length++
				continue
			}

			return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
		}

		return url, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrMaxRetriesExceeded)
}

// ResolveID returns the record behind id after counting the visit.
//
// The error matches entity.ErrURLNotFound when id is empty or unknown, and
// entity.ErrNoDestination when the record has no url; such records are not
// counted. Any other error comes from the store.
func (uc *URLUseCase) ResolveID(ctx context.Context, id string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ResolveID"

	if id == "" {
		return nil, fmt.Errorf("%s: empty id: %w", op, entity.ErrURLNotFound)
	}

	url, err := uc.urlRepo.RetrieveByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to find url: %w", op, err)
	}

	if !url.HasDestination() {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrNoDestination)
	}

	url, err = uc.urlRepo.IncrementClicks(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to count click: %w", op, err)
	}

	return url, nil
}
