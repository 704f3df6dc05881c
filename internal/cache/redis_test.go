package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/rueidis/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRedisStore_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "emb:hit")).
		Return(mock.Result(mock.RedisBlobString("\x01\x02")))

	s := NewRedisStoreFromClient(c, time.Hour)
	got, err := s.Get(context.Background(), "emb:hit")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, got)
}

func TestRedisStore_GetMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "emb:miss")).
		Return(mock.Result(mock.RedisNil()))

	s := NewRedisStoreFromClient(c, time.Hour)
	_, err := s.Get(context.Background(), "emb:miss")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisStore_GetError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "emb:x")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewRedisStoreFromClient(c, time.Hour)
	_, err := s.Get(context.Background(), "emb:x")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrKeyNotFound))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisStore_SetWithTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "emb:k", "v", "EX", "3600")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewRedisStoreFromClient(c, time.Hour)
	require.NoError(t, s.Set(context.Background(), "emb:k", []byte("v")))
}

func TestRedisStore_SetWithoutTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "emb:k", "v")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewRedisStoreFromClient(c, 0)
	require.NoError(t, s.Set(context.Background(), "emb:k", []byte("v")))
}

func TestRedisStore_SetError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		Return(mock.ErrorResult(errors.New("READONLY")))

	s := NewRedisStoreFromClient(c, time.Minute)
	assert.Error(t, s.Set(context.Background(), "emb:k", []byte("v")))
}
