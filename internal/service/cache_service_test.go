package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/brightpath/studyplan-core/pkg/errors"
)

type fakeCacheRepository struct {
	getErr      error
	getValue    string
	setErr      error
	setCalls    int
	setTTL      time.Duration
	deleteErr   error
	deletePattern string
}

func (f *fakeCacheRepository) Get(_ context.Context, _ string, dest interface{}) error {
	if f.getErr != nil {
		return f.getErr
	}
	*(dest.(*string)) = f.getValue
	return nil
}

func (f *fakeCacheRepository) Set(_ context.Context, _ string, _ interface{}, ttl time.Duration) error {
	f.setCalls++
	f.setTTL = ttl
	return f.setErr
}

func (f *fakeCacheRepository) DeleteByPattern(_ context.Context, pattern string) error {
	f.deletePattern = pattern
	return f.deleteErr
}

func TestCacheServiceDisabledWhenFlagFalse(t *testing.T) {
	repo := &fakeCacheRepository{}
	s := NewCacheService(repo, NewMetricsService(), 0, nil, false)
	assert.False(t, s.Enabled())

	var dest string
	hit, err := s.Get(context.Background(), "key", &dest)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Zero(t, repo.setCalls)
}

func TestCacheServiceDisabledWithoutRepo(t *testing.T) {
	s := NewCacheService(nil, NewMetricsService(), 0, nil, true)
	assert.False(t, s.Enabled())
}

func TestCacheServiceGetHit(t *testing.T) {
	repo := &fakeCacheRepository{getValue: "cached"}
	s := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)
	require.True(t, s.Enabled())

	var dest string
	hit, err := s.Get(context.Background(), "key", &dest)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "cached", dest)
}

func TestCacheServiceGetMiss(t *testing.T) {
	repo := &fakeCacheRepository{getErr: appErrors.ErrCacheMiss}
	s := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)

	var dest string
	hit, err := s.Get(context.Background(), "key", &dest)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceGetPropagatesUnexpectedError(t *testing.T) {
	repo := &fakeCacheRepository{getErr: assertError("boom")}
	s := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)

	var dest string
	_, err := s.Get(context.Background(), "key", &dest)
	assert.Error(t, err)
}

func TestCacheServiceSetUsesDefaultTTLWhenZero(t *testing.T) {
	repo := &fakeCacheRepository{}
	s := NewCacheService(repo, NewMetricsService(), 5*time.Minute, nil, true)

	require.NoError(t, s.Set(context.Background(), "key", "value", 0))
	assert.Equal(t, 1, repo.setCalls)
	assert.Equal(t, 5*time.Minute, repo.setTTL)
}

func TestCacheServiceInvalidateDelegatesToRepo(t *testing.T) {
	repo := &fakeCacheRepository{}
	s := NewCacheService(repo, NewMetricsService(), 0, nil, true)

	require.NoError(t, s.Invalidate(context.Background(), "plan:*"))
	assert.Equal(t, "plan:*", repo.deletePattern)
}

type assertError string

func (e assertError) Error() string { return string(e) }
