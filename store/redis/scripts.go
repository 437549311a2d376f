package redis

import goredis "github.com/redis/go-redis/v9"

// Every state transition is a single Lua script so the full read-check-write
// sequence runs atomically server-side. go-redis caches each script by SHA
// and falls back to EVAL transparently.
//
// Shared error codes returned by the transition scripts:
//
//	-1  job hash does not exist
//	-2  lock key is missing (lease expired or already released)
//	-3  job is not in the active list
//	-6  lock is held under a different token

// addLua assigns the next ID from the counter, writes the job hash, and
// pushes the ID onto the waiting list (or the paused list when the queue is
// paused). The marker wakes blocked workers; the stream records the birth.
//
// KEYS: [1] wait  [2] paused  [3] meta  [4] id  [5] marker  [6] events
// ARGV: [1] key prefix  [2] name  [3] data  [4] opts JSON  [5] timestamp ms
const addLua = `
local jobId = redis.call("INCR", KEYS[4])
local jobKey = ARGV[1] .. jobId
redis.call("HSET", jobKey,
    "name", ARGV[2],
    "data", ARGV[3],
    "opts", ARGV[4],
    "timestamp", ARGV[5],
    "delay", "0",
    "priority", "0",
    "atm", "0",
    "ats", "0")
local target = KEYS[1]
if redis.call("HEXISTS", KEYS[3], "paused") == 1 then
    target = KEYS[2]
end
redis.call("LPUSH", target, jobId)
redis.call("ZADD", KEYS[5], tonumber(ARGV[5]), jobId)
redis.call("XADD", KEYS[6], "*", "event", "added", "jobId", jobId)
return jobId
`

var addScript = goredis.NewScript(addLua)

// leaseLua moves the oldest waiting job to the active list, writes the
// lease lock under the caller's token, stamps processedOn, and bumps the
// attempt counters. The job's marker entry is cleared in the same step, so
// the marker only ever holds IDs that are still waiting. Returns nil when
// the waiting list is empty, otherwise {jobId, HGETALL of the job hash}.
//
// KEYS: [1] wait  [2] active  [3] events  [4] marker
// ARGV: [1] key prefix  [2] lease token  [3] lock TTL ms  [4] now ms
const leaseLua = `
local jobId = redis.call("LMOVE", KEYS[1], KEYS[2], "RIGHT", "LEFT")
if jobId == false then
    return nil
end
redis.call("ZREM", KEYS[4], jobId)
local jobKey = ARGV[1] .. jobId
redis.call("SET", jobKey .. ":lock", ARGV[2], "PX", ARGV[3])
redis.call("HSET", jobKey, "processedOn", ARGV[4])
redis.call("HINCRBY", jobKey, "atm", 1)
redis.call("HINCRBY", jobKey, "ats", 1)
redis.call("XADD", KEYS[3], "*", "event", "active", "jobId", jobId, "prev", "waiting")
return {jobId, redis.call("HGETALL", jobKey)}
`

var leaseScript = goredis.NewScript(leaseLua)

// completeLua verifies the lease, removes the job from the active list,
// records finishedOn and the return value, and adds it to the completed set.
//
// KEYS: [1] active  [2] completed  [3] events
// ARGV: [1] key prefix  [2] job ID  [3] lease token  [4] finishedOn ms
//       [5] return value
const completeLua = `
local jobKey = ARGV[1] .. ARGV[2]
if redis.call("EXISTS", jobKey) ~= 1 then
    return -1
end
local lockKey = jobKey .. ":lock"
local token = redis.call("GET", lockKey)
if token == false then
    return -2
end
if token ~= ARGV[3] then
    return -6
end
if redis.call("LREM", KEYS[1], 1, ARGV[2]) ~= 1 then
    return -3
end
redis.call("DEL", lockKey)
redis.call("ZADD", KEYS[2], tonumber(ARGV[4]), ARGV[2])
redis.call("HSET", jobKey, "finishedOn", ARGV[4], "returnvalue", ARGV[5])
redis.call("XADD", KEYS[3], "*", "event", "completed", "jobId", ARGV[2], "prev", "active")
return 0
`

var completeScript = goredis.NewScript(completeLua)

// failLua verifies the lease, records the failure reason, then decides in
// place: if attempts made is still below the configured budget the job goes
// back to the tail of the waiting list with a fresh marker entry (return 1),
// otherwise it lands in the failed set (return 0). One script so the retry
// decision can never race a concurrent transition. A terminal job needs no
// marker cleanup: its entry was already cleared by the lease that put it on
// the active list.
//
// KEYS: [1] wait  [2] active  [3] failed  [4] events  [5] marker
//       [6] paused  [7] meta
// ARGV: [1] key prefix  [2] job ID  [3] lease token  [4] failedReason
//       [5] now ms
const failLua = `
local jobKey = ARGV[1] .. ARGV[2]
if redis.call("EXISTS", jobKey) ~= 1 then
    return -1
end
local lockKey = jobKey .. ":lock"
local token = redis.call("GET", lockKey)
if token == false then
    return -2
end
if token ~= ARGV[3] then
    return -6
end
if redis.call("LREM", KEYS[2], 1, ARGV[2]) ~= 1 then
    return -3
end
redis.call("DEL", lockKey)
redis.call("HSET", jobKey, "failedReason", ARGV[4])

local atm = tonumber(redis.call("HGET", jobKey, "atm")) or 0
local attempts = 1
local rawOpts = redis.call("HGET", jobKey, "opts")
if rawOpts then
    local ok, opts = pcall(cjson.decode, rawOpts)
    if ok and type(opts) == "table" and tonumber(opts["attempts"]) then
        attempts = tonumber(opts["attempts"])
    end
end

if atm < attempts then
    local target = KEYS[1]
    if redis.call("HEXISTS", KEYS[7], "paused") == 1 then
        target = KEYS[6]
    end
    redis.call("LPUSH", target, ARGV[2])
    redis.call("ZADD", KEYS[5], tonumber(ARGV[5]), ARGV[2])
    redis.call("XADD", KEYS[4], "*", "event", "waiting", "jobId", ARGV[2], "prev", "active")
    return 1
end

redis.call("ZADD", KEYS[3], tonumber(ARGV[5]), ARGV[2])
redis.call("HSET", jobKey, "finishedOn", ARGV[5])
redis.call("XADD", KEYS[4], "*", "event", "failed", "jobId", ARGV[2], "failedReason", ARGV[4], "prev", "active")
return 0
`

var failScript = goredis.NewScript(failLua)

// pauseLua flags the queue as paused and drains the waiting list into the
// paused list, preserving order. LMOVE RIGHT/LEFT keeps relative order intact
// for the mirror move in resumeLua.
//
// KEYS: [1] wait  [2] paused  [3] meta
const pauseLua = `
redis.call("HSET", KEYS[3], "paused", 1)
while true do
    local jobId = redis.call("LMOVE", KEYS[1], KEYS[2], "RIGHT", "LEFT")
    if not jobId then
        break
    end
end
return 0
`

var pauseScript = goredis.NewScript(pauseLua)

// resumeLua clears the paused flag and folds the paused backlog back into
// the waiting list in original order, touching the marker so blocked workers
// wake up. Returns the number of jobs moved.
//
// KEYS: [1] wait  [2] paused  [3] meta  [4] marker
// ARGV: [1] now ms
const resumeLua = `
redis.call("HDEL", KEYS[3], "paused")
local moved = 0
while true do
    local jobId = redis.call("LMOVE", KEYS[2], KEYS[1], "RIGHT", "LEFT")
    if not jobId then
        break
    end
    moved = moved + 1
    redis.call("ZADD", KEYS[4], tonumber(ARGV[1]), jobId)
end
return moved
`

var resumeScript = goredis.NewScript(resumeLua)
