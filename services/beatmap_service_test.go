package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type BeatmapServiceTestSuite struct {
	suite.Suite
	mr     *miniredis.Miniredis
	client *redis.Client
	cache  *RedisSetIDCache
	mirror *httptest.Server
	hits   atomic.Int32
}

func (s *BeatmapServiceTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr
	s.client = redis.NewClient(&redis.Options{Addr: mr.Addr()})

	s.cache, err = NewRedisSetIDCache(context.Background(), s.client, time.Hour)
	s.Require().NoError(err)

	s.hits.Store(0)
	s.mirror = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		switch r.URL.Path {
		case "/api/md5/abc123":
			fmt.Fprint(w, `{"beatmapset_id": 4242, "title": "song"}`)
		case "/api/md5/beef":
			fmt.Fprint(w, `{"beatmapset_id": "77"}`)
		case "/api/md5/bad0":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
}

func (s *BeatmapServiceTestSuite) TearDownTest() {
	s.mirror.Close()
	s.client.Close()
	s.mr.Close()
}

func TestBeatmapServiceTestSuite(t *testing.T) {
	suite.Run(t, new(BeatmapServiceTestSuite))
}

func (s *BeatmapServiceTestSuite) TestFetchSetIDUsesCache() {
	svc := NewBeatmapService(s.mirror.URL+"/api", nil, s.cache)
	ctx := context.Background()

	setID, err := svc.FetchSetID(ctx, "abc123")
	s.Require().NoError(err)
	s.Equal("4242", setID)

	setID, err = svc.FetchSetID(ctx, "abc123")
	s.Require().NoError(err)
	s.Equal("4242", setID)
	s.Equal(int32(1), s.hits.Load(), "second lookup is served from redis")

	cached, err := s.mr.Get(setIDKeyPrefix + "abc123")
	s.Require().NoError(err)
	s.Equal("4242", cached)
	s.Equal(time.Hour, s.mr.TTL(setIDKeyPrefix+"abc123"))
}

func (s *BeatmapServiceTestSuite) TestFetchSetIDStringID() {
	svc := NewBeatmapService(s.mirror.URL+"/api/", nil, nil)
	setID, err := svc.FetchSetID(context.Background(), "beef")
	s.Require().NoError(err)
	s.Equal("77", setID)
}

func (s *BeatmapServiceTestSuite) TestFetchSetIDErrors() {
	svc := NewBeatmapService(s.mirror.URL+"/api", nil, s.cache)
	ctx := context.Background()

	_, err := svc.FetchSetID(ctx, "0000")
	s.ErrorIs(err, ErrBeatmapNotFound)

	_, err = svc.FetchSetID(ctx, "bad0")
	s.Error(err)
	s.False(s.mr.Exists(setIDKeyPrefix+"bad0"), "failures are not cached")

	_, err = NewBeatmapService("", nil, nil).FetchSetID(ctx, "abc123")
	s.Error(err)
}

func (s *BeatmapServiceTestSuite) TestFetchSetIDRejectsNonChecksums() {
	svc := NewBeatmapService(s.mirror.URL+"/api/", nil, s.cache)
	ctx := context.Background()

	for _, md5 := range []string{"../admin/delete?x=1", "abc#frag", "abc/def", "zz", strings.Repeat("a", 33)} {
		_, err := svc.FetchSetID(ctx, md5)
		s.ErrorIs(err, ErrInvalidChecksum, md5)
	}
	s.Equal(int32(0), s.hits.Load(), "nothing reaches the mirror")
	s.Empty(s.mr.Keys(), "nothing is cached")
}

func (s *BeatmapServiceTestSuite) TestCacheOutageFallsThrough() {
	svc := NewBeatmapService(s.mirror.URL+"/api", nil, s.cache)
	s.mr.Close()

	setID, err := svc.FetchSetID(context.Background(), "abc123")
	s.Require().NoError(err)
	s.Equal("4242", setID)
}

func (s *BeatmapServiceTestSuite) TestCacheExpires() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, "abc123", "1"))
	s.mr.FastForward(2 * time.Hour)

	_, ok, err := s.cache.Get(ctx, "abc123")
	s.Require().NoError(err)
	s.False(ok)
}
