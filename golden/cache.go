// Copyright (C) 2025 Petr Malik
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at <https://mozilla.org/MPL/2.0/>.

package golden

import (
	"context"
	"sync"
	"time"

	"github.com/ThePhilAz/unique-benchmarking/pkg/logging"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Cache resolves golden answers, generating each (question, model) pair at most once.
// Concurrent requests for the same pair share a single generation.
// Failed generations are cached too, so a failing question is not retried
// within the lifetime of the cache.
type Cache struct {
	generator Generator
	store     Store
	logger    logging.Logger

	group   singleflight.Group
	mu      sync.Mutex
	answers map[string]Answer
}

// NewCache creates a cache backed by the given generator.
// The store is optional; when present, successful answers found there are
// reused and newly generated answers are written to it.
func NewCache(generator Generator, store Store, logger logging.Logger) *Cache {
	return &Cache{
		generator: generator,
		store:     store,
		logger:    logger.WithContext("[golden] "),
		answers:   make(map[string]Answer),
	}
}

// Get returns the golden answer for the question. It never fails: a generation
// error is recorded as an unsuccessful answer whose text describes the error.
func (c *Cache) Get(ctx context.Context, question string, model string) Answer {
	key := QuestionHash(question, model)
	if answer, ok := c.cached(key); ok {
		return answer
	}

	value, _, _ := c.group.Do(key, func() (any, error) {
		if answer, ok := c.cached(key); ok {
			return answer, nil
		}
		answer := c.resolve(ctx, key, question, model)
		c.mu.Lock()
		c.answers[key] = answer
		c.mu.Unlock()
		return answer, nil
	})
	return value.(Answer)
}

// Resolve returns the golden answers of all distinct questions keyed by question,
// generating up to concurrency answers at the same time.
func (c *Cache) Resolve(ctx context.Context, questions []string, model string, concurrency int) map[string]Answer {
	var mu sync.Mutex
	resolved := make(map[string]Answer, len(questions))

	g := errgroup.Group{}
	g.SetLimit(max(concurrency, 1))
	for _, question := range questions {
		mu.Lock()
		_, seen := resolved[question]
		resolved[question] = Answer{}
		mu.Unlock()
		if seen {
			continue
		}
		g.Go(func() error {
			answer := c.Get(ctx, question, model)
			mu.Lock()
			resolved[question] = answer
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return resolved
}

// Len returns the number of answers held by the cache.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.answers)
}

func (c *Cache) cached(key string) (Answer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	answer, ok := c.answers[key]
	return answer, ok
}

func (c *Cache) resolve(ctx context.Context, key string, question string, model string) Answer {
	if c.store != nil {
		stored, found, err := c.store.LookupGolden(ctx, key)
		switch {
		case err != nil:
			c.logger.Error(ctx, logging.LevelWarn, err, "failed to look up stored golden answer")
		case found && stored.Success:
			c.logger.Message(ctx, logging.LevelDebug, "reusing stored golden answer for: %s", logging.FormatLogPreview(question))
			return stored
		}
	}

	c.logger.Message(ctx, logging.LevelInfo, "generating golden answer with %s for: %s", model, logging.FormatLogPreview(question))
	answer := Answer{Question: question, Model: model, StartedAt: time.Now()}
	text, err := c.generator.Generate(ctx, question, model)
	answer.EndedAt = time.Now()
	if err != nil {
		c.logger.Error(ctx, logging.LevelError, err, "failed to generate golden answer for: %s", logging.FormatLogPreview(question))
		answer.Text = failureText(err)
	} else {
		answer.Text = text
		answer.Success = true
	}

	if c.store != nil {
		if err := c.store.SaveGolden(ctx, answer); err != nil {
			c.logger.Error(ctx, logging.LevelWarn, err, "failed to store golden answer")
		}
	}
	return answer
}
