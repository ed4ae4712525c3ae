package buissines

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/nooksocial/nook-engine/config"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/dto"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/entities"
	domainerrors "github.com/nooksocial/nook-engine/internal/domain/farcaster/errors"
	"github.com/nooksocial/nook-engine/internal/infrastructure/metrics"
	pkgerrors "github.com/nooksocial/nook-engine/pkg/errors"
)

type fakeEntityRepo struct {
	byFid  map[uint64]*entities.Entity
	nextID int
}

func newFakeEntityRepo() *fakeEntityRepo {
	return &fakeEntityRepo{byFid: make(map[uint64]*entities.Entity)}
}

func (r *fakeEntityRepo) Create(_ context.Context, entity *entities.Entity) error {
	if _, ok := r.byFid[entity.Fid]; ok {
		return domainerrors.ErrEntityAlreadyExists
	}
	stored := *entity
	r.byFid[entity.Fid] = &stored
	return nil
}

func (r *fakeEntityRepo) GetByFid(_ context.Context, fid uint64) (*entities.Entity, error) {
	entity, ok := r.byFid[fid]
	if !ok {
		return nil, domainerrors.ErrEntityNotFound
	}
	copied := *entity
	return &copied, nil
}

func (r *fakeEntityRepo) GetByFids(_ context.Context, fids []uint64) ([]entities.Entity, error) {
	var result []entities.Entity
	for _, fid := range fids {
		if entity, ok := r.byFid[fid]; ok {
			result = append(result, *entity)
		}
	}
	return result, nil
}

func (r *fakeEntityRepo) GetByID(_ context.Context, id string) (*entities.Entity, error) {
	for _, entity := range r.byFid {
		if entity.ID == id {
			copied := *entity
			return &copied, nil
		}
	}
	return nil, domainerrors.ErrEntityNotFound
}

func (r *fakeEntityRepo) UpdateProfile(_ context.Context, id string, profile dto.UserData) error {
	for _, entity := range r.byFid {
		if entity.ID == id {
			entity.Username = profile.Username
			entity.DisplayName = profile.DisplayName
			entity.AvatarURL = profile.AvatarURL
			entity.Bio = profile.Bio
			return nil
		}
	}
	return domainerrors.ErrEntityNotFound
}

type fakeContentRepo struct {
	contents map[string]*entities.Content
	deleted  map[string]bool
	topics   map[string][]entities.Topic
}

func newFakeContentRepo() *fakeContentRepo {
	return &fakeContentRepo{
		contents: make(map[string]*entities.Content),
		deleted:  make(map[string]bool),
		topics:   make(map[string][]entities.Topic),
	}
}

func (r *fakeContentRepo) Upsert(_ context.Context, content *entities.Content, topics []entities.Topic) (bool, error) {
	if _, ok := r.contents[content.ContentID]; ok {
		return false, nil
	}
	stored := *content
	r.contents[content.ContentID] = &stored
	r.topics[content.ContentID] = append([]entities.Topic(nil), topics...)
	return true, nil
}

func (r *fakeContentRepo) GetByID(_ context.Context, contentID string) (*entities.Content, error) {
	content, ok := r.contents[contentID]
	if !ok || r.deleted[contentID] {
		return nil, domainerrors.ErrContentNotFound
	}
	copied := *content
	return &copied, nil
}

func (r *fakeContentRepo) GetByIDs(_ context.Context, contentIDs []string) ([]entities.Content, error) {
	var result []entities.Content
	for _, id := range contentIDs {
		if content, ok := r.contents[id]; ok && !r.deleted[id] {
			result = append(result, *content)
		}
	}
	return result, nil
}

func (r *fakeContentRepo) SoftDelete(_ context.Context, contentID string) error {
	r.deleted[contentID] = true
	return nil
}

func (r *fakeContentRepo) counter(contentID, counter string) *int64 {
	content, ok := r.contents[contentID]
	if !ok {
		return nil
	}
	switch counter {
	case entities.CounterLikes:
		return &content.Likes
	case entities.CounterReposts:
		return &content.Reposts
	case entities.CounterReplies:
		return &content.Replies
	case entities.CounterEmbeds:
		return &content.EmbedCount
	}
	return nil
}

func (r *fakeContentRepo) IncrementCounter(_ context.Context, contentID, counter string) error {
	if c := r.counter(contentID, counter); c != nil {
		*c++
	}
	return nil
}

func (r *fakeContentRepo) DecrementCounter(_ context.Context, contentID, counter string) (bool, error) {
	c := r.counter(contentID, counter)
	if c == nil || *c == 0 {
		return true, nil
	}
	*c--
	return false, nil
}

func (r *fakeContentRepo) SetCounters(_ context.Context, contentID string, likes, reposts, replies, embeds int64) error {
	content, ok := r.contents[contentID]
	if !ok {
		return domainerrors.ErrContentNotFound
	}
	content.Likes, content.Reposts, content.Replies, content.EmbedCount = likes, reposts, replies, embeds
	return nil
}

func (r *fakeContentRepo) CountReplies(_ context.Context, contentID string) (int64, error) {
	var count int64
	for id, content := range r.contents {
		if content.ParentContentID == contentID && !r.deleted[id] {
			count++
		}
	}
	return count, nil
}

func (r *fakeContentRepo) CountEmbedding(_ context.Context, uri string) (int64, error) {
	var count int64
	for id, topics := range r.topics {
		if r.deleted[id] {
			continue
		}
		for _, topic := range topics {
			if topic.Type == entities.TopicSourceEmbed && topic.Value == uri {
				count++
				break
			}
		}
	}
	return count, nil
}

type fakeAction struct {
	action  entities.Action
	deleted bool
}

type fakeActionRepo struct {
	actions []*fakeAction
	byEvent map[string]bool
}

func newFakeActionRepo() *fakeActionRepo {
	return &fakeActionRepo{byEvent: make(map[string]bool)}
}

func (r *fakeActionRepo) Upsert(_ context.Context, action *entities.Action, _ []entities.Topic) (bool, error) {
	if r.byEvent[action.EventID] {
		return false, nil
	}
	r.byEvent[action.EventID] = true
	r.actions = append(r.actions, &fakeAction{action: *action})
	return true, nil
}

func (r *fakeActionRepo) matching(match func(entities.Action) bool) *fakeAction {
	var newest *fakeAction
	for _, candidate := range r.actions {
		if candidate.deleted || !match(candidate.action) {
			continue
		}
		if newest == nil || candidate.action.Timestamp.After(newest.action.Timestamp) {
			newest = candidate
		}
	}
	return newest
}

func (r *fakeActionRepo) SoftDeleteMatching(_ context.Context, actionType, entityID, targetContentID string) (bool, error) {
	newest := r.matching(func(a entities.Action) bool {
		return a.Type == actionType && a.EntityID == entityID && a.TargetContentID == targetContentID
	})
	if newest == nil {
		return false, nil
	}
	newest.deleted = true
	return true, nil
}

func (r *fakeActionRepo) SoftDeleteMatchingEntity(_ context.Context, actionType, entityID, targetEntityID string) (bool, error) {
	newest := r.matching(func(a entities.Action) bool {
		return a.Type == actionType && a.EntityID == entityID && a.TargetEntityID == targetEntityID
	})
	if newest == nil {
		return false, nil
	}
	newest.deleted = true
	return true, nil
}

func (r *fakeActionRepo) CountActive(_ context.Context, actionType, targetContentID string) (int64, error) {
	var count int64
	for _, candidate := range r.actions {
		if !candidate.deleted && candidate.action.Type == actionType && candidate.action.TargetContentID == targetContentID {
			count++
		}
	}
	return count, nil
}

func (r *fakeActionRepo) activeOfType(actionType string) []entities.Action {
	var result []entities.Action
	for _, candidate := range r.actions {
		if !candidate.deleted && candidate.action.Type == actionType {
			result = append(result, candidate.action)
		}
	}
	return result
}

type fakeFeedRepo struct {
	items     []dto.FeedItem
	lastQuery *dto.FeedQuery
	calls     int
}

func (r *fakeFeedRepo) Query(_ context.Context, query *dto.FeedQuery) ([]dto.FeedItem, error) {
	r.calls++
	copied := *query
	r.lastQuery = &copied

	items := r.items
	if query.PageSize < len(items) {
		items = items[:query.PageSize]
	}
	return items, nil
}

type fakeCache struct {
	fidToID  map[uint64]string
	badge    []uint64
	badgeSet bool
	badgeTTL time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{fidToID: make(map[uint64]string)}
}

func (c *fakeCache) GetEntityID(_ context.Context, fid uint64) (string, bool) {
	id, ok := c.fidToID[fid]
	return id, ok
}

func (c *fakeCache) GetFid(_ context.Context, entityID string) (uint64, bool) {
	for fid, id := range c.fidToID {
		if id == entityID {
			return fid, true
		}
	}
	return 0, false
}

func (c *fakeCache) Set(_ context.Context, fid uint64, entityID string) {
	c.fidToID[fid] = entityID
}

func (c *fakeCache) GetPowerBadgeFids(_ context.Context) ([]uint64, bool) {
	if !c.badgeSet {
		return nil, false
	}
	return c.badge, true
}

func (c *fakeCache) SetPowerBadgeFids(_ context.Context, fids []uint64, ttl time.Duration) {
	c.badge = fids
	c.badgeSet = true
	c.badgeTTL = ttl
}

type fakeHub struct {
	casts     map[string]*dto.CastData
	users     map[uint64]dto.UserData
	castCalls int
}

func newFakeHub() *fakeHub {
	return &fakeHub{
		casts: make(map[string]*dto.CastData),
		users: make(map[uint64]dto.UserData),
	}
}

func castKey(fid uint64, hash string) string {
	return fmt.Sprintf("%d/%s", fid, hash)
}

func (h *fakeHub) GetCast(_ context.Context, fid uint64, hash string) (*dto.CastData, error) {
	h.castCalls++
	cast, ok := h.casts[castKey(fid, hash)]
	if !ok {
		return nil, pkgerrors.NewRetryableError(fmt.Sprintf("cast %d/%s not yet indexed", fid, hash), nil)
	}
	copied := *cast
	return &copied, nil
}

func (h *fakeHub) GetUserDatas(_ context.Context, fids []uint64) ([]dto.UserData, error) {
	var result []dto.UserData
	for _, fid := range fids {
		if user, ok := h.users[fid]; ok {
			result = append(result, user)
		}
	}
	return result, nil
}

type fakeGraph struct {
	following  map[uint64][]uint64
	mutes      *dto.MuteContext
	badge      []uint64
	muteCalls  int
	badgeCalls int
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{following: make(map[uint64][]uint64)}
}

func (g *fakeGraph) GetFollowing(_ context.Context, fid uint64) ([]uint64, error) {
	return g.following[fid], nil
}

func (g *fakeGraph) GetMutes(_ context.Context, fid uint64) (*dto.MuteContext, error) {
	g.muteCalls++
	if g.mutes == nil {
		return &dto.MuteContext{}, nil
	}
	return g.mutes, nil
}

func (g *fakeGraph) GetPowerBadgeUsers(_ context.Context) ([]uint64, error) {
	g.badgeCalls++
	return g.badge, nil
}

type fakeProducer struct {
	sent []*dto.NormalizedEvent
}

func (p *fakeProducer) SendNormalized(_ context.Context, event *dto.NormalizedEvent) error {
	p.sent = append(p.sent, event)
	return nil
}

func (p *fakeProducer) Close() error { return nil }

type testEnv struct {
	uc       *UseCase
	entities *fakeEntityRepo
	contents *fakeContentRepo
	actions  *fakeActionRepo
	feed     *fakeFeedRepo
	cache    *fakeCache
	hub      *fakeHub
	graph    *fakeGraph
	producer *fakeProducer
}

func newTestEnv() *testEnv {
	env := &testEnv{
		entities: newFakeEntityRepo(),
		contents: newFakeContentRepo(),
		actions:  newFakeActionRepo(),
		feed:     &fakeFeedRepo{},
		cache:    newFakeCache(),
		hub:      newFakeHub(),
		graph:    newFakeGraph(),
		producer: &fakeProducer{},
	}

	env.uc = NewUseCase(
		env.entities,
		env.contents,
		env.actions,
		env.feed,
		env.cache,
		env.hub,
		env.graph,
		env.producer,
		metrics.GetDefaultMetrics(),
		&config.FeedConfig{DefaultPageSize: 25, MaxPageSize: 100},
		&config.GraphConfig{PowerBadgeTTL: 30 * time.Minute},
		zerolog.Nop(),
	)
	return env
}

func sortedFids(fids []uint64) []uint64 {
	sorted := append([]uint64(nil), fids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted
}
