package skills

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/skillflow/types"
)

// ErrCacheMiss 缓存未命中。
var ErrCacheMiss = errors.New("skills: cache miss")

// ResultCache 技能结果缓存。Get 未命中返回 ErrCacheMiss。
type ResultCache interface {
	Get(ctx context.Context, key string) (*types.SkillResult, error)
	Set(ctx context.Context, key string, result *types.SkillResult) error
}

// CacheKey 生成确定性的缓存键：技能名、输入、角色与排序后的参数
// 共同决定一个键，与参数的 map 遍历顺序无关。
func CacheKey(skillName, userInput string, characterID int64, params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(skillName)
	sb.WriteByte('|')
	sb.WriteString(userInput)
	sb.WriteByte('|')
	fmt.Fprintf(&sb, "%d", characterID)
	for _, k := range keys {
		fmt.Fprintf(&sb, "|%s=%v", k, params[k])
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return "skill:result:" + hex.EncodeToString(sum[:16])
}

// lruEntry LRU 缓存内部条目。
type lruEntry struct {
	key       string
	result    *types.SkillResult
	expiresAt time.Time
}

// LRUCache 进程内 LRU + TTL 结果缓存。
type LRUCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List               // 头部最新
	items    map[string]*list.Element // key → *lruEntry

	hits   int64
	misses int64
}

// NewLRUCache 构造本地缓存。capacity<=0 时取 256。
func NewLRUCache(capacity int, ttl time.Duration) *LRUCache {
	if capacity <= 0 {
		capacity = 256
	}
	return &LRUCache{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get 实现 ResultCache。
func (c *LRUCache) Get(_ context.Context, key string) (*types.SkillResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, ErrCacheMiss
	}
	entry := el.Value.(*lruEntry)
	if c.ttl > 0 && time.Now().After(entry.expiresAt) {
		c.order.Remove(el)
		delete(c.items, key)
		c.misses++
		return nil, ErrCacheMiss
	}
	c.order.MoveToFront(el)
	c.hits++
	return entry.result, nil
}

// Set 实现 ResultCache。满时淘汰最久未使用条目。
func (c *LRUCache) Set(_ context.Context, key string, result *types.SkillResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		entry := el.Value.(*lruEntry)
		entry.result = result
		entry.expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(el)
		return nil
	}
	for c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*lruEntry).key)
	}
	el := c.order.PushFront(&lruEntry{key: key, result: result, expiresAt: time.Now().Add(c.ttl)})
	c.items[key] = el
	return nil
}

// Stats 返回 (命中, 未命中, 当前条目数)。
func (c *LRUCache) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.order.Len()
}

// RedisCache 基于 Redis 的结果缓存，JSON 序列化存储。
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache 构造 Redis 缓存。
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger.With(zap.String("component", "result_cache_redis"))}
}

// Get 实现 ResultCache。Redis 故障按未命中处理并记日志。
func (c *RedisCache) Get(ctx context.Context, key string) (*types.SkillResult, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis get 失败", zap.String("key", key), zap.Error(err))
		}
		return nil, ErrCacheMiss
	}
	var result types.SkillResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("缓存条目反序列化失败", zap.String("key", key), zap.Error(err))
		return nil, ErrCacheMiss
	}
	return &result, nil
}

// Set 实现 ResultCache。
func (c *RedisCache) Set(ctx context.Context, key string, result *types.SkillResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("redis set 失败", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// MultiLevelCache 两级缓存：本地 LRU 在前，Redis 在后。L2 命中时回填 L1。
type MultiLevelCache struct {
	local  *LRUCache
	remote *RedisCache
}

// NewMultiLevelCache 构造两级缓存。remote 可为 nil，退化为纯本地缓存。
func NewMultiLevelCache(local *LRUCache, remote *RedisCache) *MultiLevelCache {
	return &MultiLevelCache{local: local, remote: remote}
}

// Get 实现 ResultCache。
func (c *MultiLevelCache) Get(ctx context.Context, key string) (*types.SkillResult, error) {
	if res, err := c.local.Get(ctx, key); err == nil {
		return res, nil
	}
	if c.remote == nil {
		return nil, ErrCacheMiss
	}
	res, err := c.remote.Get(ctx, key)
	if err != nil {
		return nil, ErrCacheMiss
	}
	_ = c.local.Set(ctx, key, res)
	return res, nil
}

// Set 实现 ResultCache，两级同写。
func (c *MultiLevelCache) Set(ctx context.Context, key string, result *types.SkillResult) error {
	_ = c.local.Set(ctx, key, result)
	if c.remote != nil {
		return c.remote.Set(ctx, key, result)
	}
	return nil
}

var (
	_ ResultCache = (*LRUCache)(nil)
	_ ResultCache = (*RedisCache)(nil)
	_ ResultCache = (*MultiLevelCache)(nil)
)
