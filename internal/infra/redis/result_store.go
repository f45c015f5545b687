package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"adaptive-quiz-service/internal/domain"
)

// ResultStore keeps results in Redis:
//
//	HSET result:{slug}               data {json} [public 0|1]
//	SET result:attempt:{attemptSlug} {slug}
type ResultStore struct {
	client *redis.Client
}

func NewResultStore(client *redis.Client) *ResultStore {
	return &ResultStore{client: client}
}

func (s *ResultStore) CreateResult(ctx context.Context, result domain.Result) (domain.Result, bool, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return domain.Result{}, false, err
	}
	slug, err := createResultScript.Run(ctx, s.client,
		[]string{resultByAttemptKey(result.AttemptSlug), resultKey(result.Slug)},
		result.Slug, payload,
	).Text()
	if err != nil {
		return domain.Result{}, false, fmt.Errorf("create result: %w", err)
	}
	if slug == result.Slug {
		return result, true, nil
	}
	existing, err := s.GetResult(ctx, slug)
	if err != nil {
		return domain.Result{}, false, err
	}
	return existing, false, nil
}

func (s *ResultStore) GetResult(ctx context.Context, slug string) (domain.Result, error) {
	fields, err := s.client.HGetAll(ctx, resultKey(slug)).Result()
	if err != nil {
		return domain.Result{}, err
	}
	data, ok := fields["data"]
	if !ok {
		return domain.Result{}, domain.ErrResultNotFound
	}
	var result domain.Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return domain.Result{}, fmt.Errorf("decode result %s: %w", slug, err)
	}
	if public, ok := fields["public"]; ok {
		result.IsPublic = public == "1"
	}
	return result, nil
}

func (s *ResultStore) FindByAttempt(ctx context.Context, attemptSlug string) (domain.Result, bool, error) {
	slug, err := s.client.Get(ctx, resultByAttemptKey(attemptSlug)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Result{}, false, nil
	}
	if err != nil {
		return domain.Result{}, false, err
	}
	result, err := s.GetResult(ctx, slug)
	if err != nil {
		return domain.Result{}, false, err
	}
	return result, true, nil
}

func (s *ResultStore) SetResultPublic(ctx context.Context, slug string, public bool) error {
	err := setPublicScript.Run(ctx, s.client, []string{resultKey(slug)}, boolArg(public)).Err()
	return scriptError(err, domain.ErrResultNotFound)
}

func resultKey(slug string) string { return "result:" + slug }

func resultByAttemptKey(attemptSlug string) string { return "result:attempt:" + attemptSlug }
