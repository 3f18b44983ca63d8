package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type tagsQuery struct {
	userID string
}

func (q tagsQuery) Validate() error {
	if q.userID == "" {
		return errors.New("user ID is required")
	}
	return nil
}

func (q tagsQuery) CacheKey() string {
	return "tags:" + q.userID
}

type mapCache struct {
	items map[string]interface{}
}

func (c *mapCache) Get(ctx context.Context, key string) (interface{}, bool) {
	v, ok := c.items[key]
	return v, ok
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.items[key] = value
	return nil
}

func TestQueryBus_Ask_DispatchesByType(t *testing.T) {
	// Arrange
	qb := NewQueryBus()
	require.NoError(t, qb.Register(tagsQuery{}, QueryHandlerFunc(func(ctx context.Context, q Query) (interface{}, error) {
		return []string{q.(tagsQuery).userID}, nil
	})))

	// Act
	result, err := qb.Ask(context.Background(), tagsQuery{userID: "u1"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, result)
}

func TestQueryBus_Ask_ValidatesFirst(t *testing.T) {
	qb := NewQueryBus()
	called := false
	require.NoError(t, qb.Register(tagsQuery{}, QueryHandlerFunc(func(ctx context.Context, q Query) (interface{}, error) {
		called = true
		return nil, nil
	})))

	_, err := qb.Ask(context.Background(), tagsQuery{})

	assert.EqualError(t, err, "user ID is required")
	assert.False(t, called)
}

func TestQueryBus_Ask_Unregistered(t *testing.T) {
	_, err := NewQueryBus().Ask(context.Background(), tagsQuery{userID: "u1"})

	assert.ErrorIs(t, err, ErrHandlerNotFound)
}

func TestQueryBus_Register_Duplicate(t *testing.T) {
	qb := NewQueryBus()
	h := QueryHandlerFunc(func(ctx context.Context, q Query) (interface{}, error) { return nil, nil })
	require.NoError(t, qb.Register(tagsQuery{}, h))

	assert.Error(t, qb.Register(tagsQuery{}, h))
}

func TestQueryBus_Middleware_WrapsOutermostFirst(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next QueryHandler) QueryHandler {
			return QueryHandlerFunc(func(ctx context.Context, q Query) (interface{}, error) {
				order = append(order, name)
				return next.Handle(ctx, q)
			})
		}
	}
	qb := NewQueryBus(mw("outer"), mw("inner"), SlowQueryMiddleware(zap.NewNop(), time.Hour))
	require.NoError(t, qb.Register(tagsQuery{}, QueryHandlerFunc(func(ctx context.Context, q Query) (interface{}, error) {
		order = append(order, "handler")
		return nil, nil
	})))

	_, err := qb.Ask(context.Background(), tagsQuery{userID: "u1"})

	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestCachingMiddleware_ServesSecondCallFromCache(t *testing.T) {
	// Arrange
	calls := 0
	cache := &mapCache{items: map[string]interface{}{}}
	handler := NewCachingMiddleware(cache, time.Minute).Wrap(QueryHandlerFunc(func(ctx context.Context, q Query) (interface{}, error) {
		calls++
		return []string{"go"}, nil
	}))

	// Act
	first, err := handler.Handle(context.Background(), tagsQuery{userID: "u1"})
	require.NoError(t, err)
	second, err := handler.Handle(context.Background(), tagsQuery{userID: "u1"})
	require.NoError(t, err)

	// Assert
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Contains(t, cache.items, "tags:u1")
}

func TestCachingMiddleware_DoesNotCacheErrors(t *testing.T) {
	calls := 0
	cache := &mapCache{items: map[string]interface{}{}}
	handler := NewCachingMiddleware(cache, time.Minute).Wrap(QueryHandlerFunc(func(ctx context.Context, q Query) (interface{}, error) {
		calls++
		return nil, errors.New("db down")
	}))

	_, _ = handler.Handle(context.Background(), tagsQuery{userID: "u1"})
	_, err := handler.Handle(context.Background(), tagsQuery{userID: "u1"})

	assert.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Empty(t, cache.items)
}
