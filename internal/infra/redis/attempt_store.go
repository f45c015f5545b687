package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"adaptive-quiz-service/internal/domain"
)

// AttemptStore keeps attempts in Redis:
//
//	HSET attempt:{slug}          slug quiz user status started_at updated_at [completed_at]
//	HSET attempt:{slug}:answers  {questionIndex} {answer json}
//	RPUSH attempt:{slug}:order   {questionIndex}   (first-insertion order)
//	SET attempt:active:{user}:{quiz} {slug}        (the in-progress slot)
type AttemptStore struct {
	client *redis.Client
}

func NewAttemptStore(client *redis.Client) *AttemptStore {
	return &AttemptStore{client: client}
}

func (s *AttemptStore) CreateInProgress(ctx context.Context, attempt domain.Attempt) (domain.Attempt, bool, error) {
	slug, err := createAttemptScript.Run(ctx, s.client,
		[]string{activeKey(attempt.UserID, attempt.QuizSlug), attemptKey(attempt.Slug)},
		attempt.Slug, attempt.QuizSlug, attempt.UserID, string(attempt.Status),
		formatTime(attempt.StartedAt), formatTime(attempt.UpdatedAt),
	).Text()
	if err != nil {
		return domain.Attempt{}, false, fmt.Errorf("create attempt: %w", err)
	}
	if slug == attempt.Slug {
		return attempt, true, nil
	}
	existing, err := s.GetAttempt(ctx, slug)
	if err != nil {
		return domain.Attempt{}, false, err
	}
	return existing, false, nil
}

func (s *AttemptStore) GetAttempt(ctx context.Context, slug string) (domain.Attempt, error) {
	pipe := s.client.Pipeline()
	header := pipe.HGetAll(ctx, attemptKey(slug))
	answers := pipe.HGetAll(ctx, answersKey(slug))
	order := pipe.LRange(ctx, orderKey(slug), 0, -1)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return domain.Attempt{}, fmt.Errorf("load attempt %s: %w", slug, err)
	}
	if len(header.Val()) == 0 {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return decodeAttempt(header.Val(), answers.Val(), order.Val())
}

func (s *AttemptStore) FindInProgress(ctx context.Context, userID, quizSlug string) (domain.Attempt, bool, error) {
	slug, err := s.client.Get(ctx, activeKey(userID, quizSlug)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Attempt{}, false, nil
	}
	if err != nil {
		return domain.Attempt{}, false, err
	}
	attempt, err := s.GetAttempt(ctx, slug)
	if errors.Is(err, domain.ErrAttemptNotFound) {
		return domain.Attempt{}, false, nil
	}
	if err != nil {
		return domain.Attempt{}, false, err
	}
	if attempt.Status != domain.AttemptInProgress {
		return domain.Attempt{}, false, nil
	}
	return attempt, true, nil
}

func (s *AttemptStore) UpsertAnswer(ctx context.Context, slug string, ans domain.SubmittedAnswer) (domain.Attempt, error) {
	payload, err := json.Marshal(ans)
	if err != nil {
		return domain.Attempt{}, err
	}
	err = upsertAnswerScript.Run(ctx, s.client,
		[]string{attemptKey(slug), answersKey(slug), orderKey(slug)},
		strconv.Itoa(ans.QuestionIndex), payload, formatTime(ans.AnsweredAt),
	).Err()
	if err != nil {
		return domain.Attempt{}, scriptError(err, domain.ErrAttemptNotFound)
	}
	return s.GetAttempt(ctx, slug)
}

func (s *AttemptStore) Transition(ctx context.Context, slug string, from, to domain.AttemptStatus, at time.Time) (domain.Attempt, error) {
	owner, err := s.client.HMGet(ctx, attemptKey(slug), "user", "quiz").Result()
	if err != nil {
		return domain.Attempt{}, err
	}
	user, _ := owner[0].(string)
	quiz, _ := owner[1].(string)
	if user == "" {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}

	err = transitionScript.Run(ctx, s.client,
		[]string{attemptKey(slug), activeKey(user, quiz)},
		string(from), string(to), formatTime(at), boolArg(to == domain.AttemptCompleted),
	).Err()
	if err != nil {
		return domain.Attempt{}, scriptError(err, domain.ErrAttemptNotFound)
	}
	return s.GetAttempt(ctx, slug)
}

func decodeAttempt(header, answers map[string]string, order []string) (domain.Attempt, error) {
	attempt := domain.Attempt{
		Slug:     header["slug"],
		QuizSlug: header["quiz"],
		UserID:   header["user"],
		Status:   domain.AttemptStatus(header["status"]),
		Answers:  make([]domain.SubmittedAnswer, 0, len(order)),
	}
	var err error
	if attempt.StartedAt, err = parseTime(header["started_at"]); err != nil {
		return domain.Attempt{}, err
	}
	if attempt.UpdatedAt, err = parseTime(header["updated_at"]); err != nil {
		return domain.Attempt{}, err
	}
	if raw, ok := header["completed_at"]; ok {
		completedAt, err := parseTime(raw)
		if err != nil {
			return domain.Attempt{}, err
		}
		attempt.CompletedAt = &completedAt
	}
	for _, idx := range order {
		raw, ok := answers[idx]
		if !ok {
			continue
		}
		var ans domain.SubmittedAnswer
		if err := json.Unmarshal([]byte(raw), &ans); err != nil {
			return domain.Attempt{}, fmt.Errorf("decode answer %s of %s: %w", idx, attempt.Slug, err)
		}
		attempt.Answers = append(attempt.Answers, ans)
	}
	return attempt, nil
}

func attemptKey(slug string) string { return "attempt:" + slug }

func answersKey(slug string) string { return "attempt:" + slug + ":answers" }

func orderKey(slug string) string { return "attempt:" + slug + ":order" }

func activeKey(userID, quizSlug string) string {
	return "attempt:active:" + userID + ":" + quizSlug
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
