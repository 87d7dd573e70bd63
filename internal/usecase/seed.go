package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"schoolevents/internal/domain"
)

// SeedResult counts what a seed run wrote.
type SeedResult struct {
	Users  int
	Events []*domain.Event
}

type SeedUseCase struct {
	fetcher        SeedFetcher
	eventRepo      domain.EventRepository
	userRepo       domain.UserRepository
	tx             domain.Transactor
	contextTimeout time.Duration
}

func NewSeedUseCase(fetcher SeedFetcher, eventRepo domain.EventRepository, userRepo domain.UserRepository, tx domain.Transactor, timeout time.Duration) *SeedUseCase {
	return &SeedUseCase{
		fetcher:        fetcher,
		eventRepo:      eventRepo,
		userRepo:       userRepo,
		tx:             tx,
		contextTimeout: timeout,
	}
}

// Seed loads users and events from location. Users are upserted by id; events are
// always created. Everything is written in one transaction.
func (uc *SeedUseCase) Seed(ctx context.Context, location string) (*SeedResult, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.contextTimeout)
	defer cancel()

	// 1. Fetch and validate
	data, err := uc.fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	if err := validateSeed(data); err != nil {
		return nil, err
	}

	// 2. Write
	result := &SeedResult{}
	err = uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, su := range data.Users {
			u := &domain.User{ID: strings.TrimSpace(su.ID), Email: strings.TrimSpace(su.Email), Name: strings.TrimSpace(su.Name)}
			if err := uc.userRepo.Upsert(ctx, u); err != nil {
				return fmt.Errorf("failed to upsert user %s: %w", u.ID, err)
			}
			result.Users++
		}
		now := time.Now().UTC()
		for _, se := range data.Events {
			ev := domain.NewEvent(strings.TrimSpace(se.Title), se.Location, se.StartsAt, se.Capacity, now)
			ev.Description = se.Description
			ev.Category = se.Category
			if err := uc.eventRepo.Create(ctx, ev); err != nil {
				return fmt.Errorf("failed to create event %q: %w", ev.Title, err)
			}
			result.Events = append(result.Events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func validateSeed(data *SeedFile) error {
	var problems []string
	for i, u := range data.Users {
		if strings.TrimSpace(u.ID) == "" || strings.TrimSpace(u.Email) == "" {
			problems = append(problems, fmt.Sprintf("users[%d]: id and email are required", i))
		}
	}
	for i, e := range data.Events {
		if strings.TrimSpace(e.Title) == "" {
			problems = append(problems, fmt.Sprintf("events[%d]: title is required", i))
		}
		if e.StartsAt.IsZero() {
			problems = append(problems, fmt.Sprintf("events[%d]: starts_at is required", i))
		}
		if e.Capacity < 0 {
			problems = append(problems, fmt.Sprintf("events[%d]: capacity must be >= 0", i))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}
