package redis

import (
	"strings"

	"github.com/redis/go-redis/v9"

	"adaptive-quiz-service/internal/domain"
)

// Scripts run atomically on the server; they are the unit of consistency for
// attempts and results. Error replies use the NOTFOUND / STATE / EXISTS codes.

// KEYS: active, attempt. ARGV: slug, quiz, user, status, started_at, updated_at.
// Returns the slug now holding the in-progress slot.
var createAttemptScript = redis.NewScript(`
local existing = redis.call('GET', KEYS[1])
if existing then
	return existing
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('HSET', KEYS[2], 'slug', ARGV[1], 'quiz', ARGV[2], 'user', ARGV[3],
	'status', ARGV[4], 'started_at', ARGV[5], 'updated_at', ARGV[6])
return ARGV[1]
`)

// KEYS: attempt, answers, order. ARGV: question index, answer json, updated_at.
var upsertAnswerScript = redis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if not status then
	return redis.error_reply('NOTFOUND')
end
if status ~= 'in-progress' then
	return redis.error_reply('STATE')
end
if redis.call('HSET', KEYS[2], ARGV[1], ARGV[2]) == 1 then
	redis.call('RPUSH', KEYS[3], ARGV[1])
end
redis.call('HSET', KEYS[1], 'updated_at', ARGV[3])
return 1
`)

// KEYS: attempt, active. ARGV: from, to, at, set completed_at ("1"/"0").
var transitionScript = redis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if not status then
	return redis.error_reply('NOTFOUND')
end
if status ~= ARGV[1] then
	return redis.error_reply('STATE')
end
redis.call('HSET', KEYS[1], 'status', ARGV[2], 'updated_at', ARGV[3])
if ARGV[4] == '1' then
	redis.call('HSET', KEYS[1], 'completed_at', ARGV[3])
end
if ARGV[2] ~= 'in-progress' and redis.call('GET', KEYS[2]) == redis.call('HGET', KEYS[1], 'slug') then
	redis.call('DEL', KEYS[2])
end
return 1
`)

// KEYS: by-attempt index, result. ARGV: slug, json.
// Returns the slug of the stored result for the attempt.
var createResultScript = redis.NewScript(`
local existing = redis.call('GET', KEYS[1])
if existing then
	return existing
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('HSET', KEYS[2], 'data', ARGV[2])
return ARGV[1]
`)

// KEYS: hash. ARGV: "1"/"0".
var setPublicScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return redis.error_reply('NOTFOUND')
end
redis.call('HSET', KEYS[1], 'public', ARGV[1])
return 1
`)

// KEYS: quiz. ARGV: json.
var createQuizScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return redis.error_reply('EXISTS')
end
redis.call('HSET', KEYS[1], 'data', ARGV[1])
return 1
`)

// scriptError maps script error replies to domain errors.
func scriptError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "NOTFOUND"):
		return notFound
	case strings.Contains(msg, "STATE"):
		return domain.ErrAttemptNotInProgress
	}
	return err
}

func boolArg(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
