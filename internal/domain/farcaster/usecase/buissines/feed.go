package buissines

import (
	"context"
	"time"

	"github.com/nooksocial/nook-engine/internal/domain/farcaster/dto"
	domainerrors "github.com/nooksocial/nook-engine/internal/domain/farcaster/errors"
	"github.com/nooksocial/nook-engine/pkg/mapfn"
)

// Degree-two following expansion caps. The direct following set is never
// truncated; only the second hop is.
const (
	degreeTwoSeedCap    = 100
	degreeTwoPerUserCap = 100
	degreeTwoTotalCap   = 10000
)

// QueryFeed resolves a declarative feed filter into a page of content ids.
// A malformed cursor restarts the feed from the top.
func (u *UseCase) QueryFeed(ctx context.Context, req *dto.FeedRequest) (*dto.FeedResponse, error) {
	start := time.Now()

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = u.feedConfig.DefaultPageSize
	}
	if pageSize > u.feedConfig.MaxPageSize {
		pageSize = u.feedConfig.MaxPageSize
	}

	query := &dto.FeedQuery{
		ContentTypes: req.Filter.ContentTypes,
		Replies:      req.Filter.Replies,
		Cursor:       DecodeCursor(req.Cursor),
		PageSize:     pageSize,
	}
	if query.Replies == "" {
		query.Replies = dto.ReplyModeExclude
	}

	if req.Filter.Channels != nil {
		query.ChannelURLs = emptyIfNil(req.Filter.Channels.URLs)
	}
	if req.Filter.Embeds != nil {
		query.EmbedSubstrings = req.Filter.Embeds
	}

	if req.Filter.Users != nil {
		fids, err := u.expandUserFilter(ctx, req.Filter.ViewerFid, req.Filter.Users)
		if err != nil {
			u.metrics.RecordFeedQueryError("user_filter")
			return nil, err
		}
		query.AuthorFids = emptyIfNil(fids)

		// An empty author set can never match anything.
		if len(query.AuthorFids) == 0 {
			u.metrics.RecordFeedQuery(time.Since(start).Seconds())
			return &dto.FeedResponse{ContentIDs: []string{}}, nil
		}
	}

	u.applyMutes(ctx, req.Filter.ViewerFid, req.Filter.Mutes, query)

	items, err := u.feedRepo.Query(ctx, query)
	if err != nil {
		u.metrics.RecordFeedQueryError("database")
		return nil, err
	}

	response := &dto.FeedResponse{
		ContentIDs: mapfn.ConvertSlice(items, func(item dto.FeedItem) string { return item.ContentID }),
	}
	if len(items) == pageSize {
		response.NextCursor = EncodeCursor(items[len(items)-1])
	}

	u.metrics.RecordFeedQuery(time.Since(start).Seconds())
	return response, nil
}

// GetContent returns a single active content record.
func (u *UseCase) GetContent(ctx context.Context, contentID string) (*dto.ContentItem, error) {
	content, err := u.contentRepo.GetByID(ctx, contentID)
	if err != nil {
		return nil, err
	}

	item := contentToItem(content)
	return &item, nil
}

// GetContents returns active content records for a set of ids, preserving
// request order and silently skipping unknown or removed ids.
func (u *UseCase) GetContents(ctx context.Context, contentIDs []string) ([]dto.ContentItem, error) {
	contentIDs = mapfn.UniqueSlice(contentIDs)
	if len(contentIDs) == 0 {
		return []dto.ContentItem{}, nil
	}

	contents, err := u.contentRepo.GetByIDs(ctx, contentIDs)
	if err != nil {
		return nil, err
	}

	items := make([]dto.ContentItem, 0, len(contents))
	for i := range contents {
		items = append(items, contentToItem(&contents[i]))
	}
	return items, nil
}

// expandUserFilter turns a declarative user clause into a concrete fid set.
func (u *UseCase) expandUserFilter(ctx context.Context, viewerFid uint64, filter *dto.UserFilter) ([]uint64, error) {
	switch filter.Type {
	case dto.UserFilterFids:
		return mapfn.UniqueSlice(filter.Fids), nil

	case dto.UserFilterFollowing:
		if viewerFid == 0 {
			return []uint64{}, nil
		}
		following, err := u.graphClient.GetFollowing(ctx, viewerFid)
		if err != nil {
			return nil, err
		}
		if filter.Degree < 2 {
			return mapfn.UniqueSlice(following), nil
		}
		return u.expandDegreeTwo(ctx, following), nil

	case dto.UserFilterPowerBadge:
		fids, err := u.powerBadgeFids(ctx)
		if err != nil {
			return nil, err
		}
		if viewerFid != 0 {
			following, err := u.graphClient.GetFollowing(ctx, viewerFid)
			if err == nil {
				fids = append(fids, following...)
			}
		}
		return mapfn.UniqueSlice(fids), nil

	default:
		return nil, domainerrors.ErrInvalidUserFilter
	}
}

// expandDegreeTwo unions the direct following set with the followings of its
// first seeds. Capped to keep the IN clause bounded; the result is a sampled
// superset, not an exact two-hop closure.
func (u *UseCase) expandDegreeTwo(ctx context.Context, following []uint64) []uint64 {
	expanded := make([]uint64, 0, len(following))
	expanded = append(expanded, following...)

	seeds := following
	if len(seeds) > degreeTwoSeedCap {
		seeds = seeds[:degreeTwoSeedCap]
	}

	for _, fid := range seeds {
		if len(expanded) >= degreeTwoTotalCap {
			break
		}
		second, err := u.graphClient.GetFollowing(ctx, fid)
		if err != nil {
			continue
		}
		if len(second) > degreeTwoPerUserCap {
			second = second[:degreeTwoPerUserCap]
		}
		expanded = append(expanded, second...)
	}

	expanded = mapfn.UniqueSlice(expanded)
	if len(expanded) > degreeTwoTotalCap {
		expanded = expanded[:degreeTwoTotalCap]
	}
	return expanded
}

// powerBadgeFids returns the power badge holder set, cached with a TTL.
func (u *UseCase) powerBadgeFids(ctx context.Context) ([]uint64, error) {
	if fids, ok := u.cache.GetPowerBadgeFids(ctx); ok {
		return fids, nil
	}

	fids, err := u.graphClient.GetPowerBadgeUsers(ctx)
	if err != nil {
		return nil, err
	}

	u.cache.SetPowerBadgeFids(ctx, fids, u.graphConfig.PowerBadgeTTL)
	return fids, nil
}

// applyMutes attaches the request's mute state to the query. A mute context
// supplied by the caller wins; otherwise the viewer's current mutes are
// fetched per request and never cached.
func (u *UseCase) applyMutes(ctx context.Context, viewerFid uint64, mutes *dto.MuteContext, query *dto.FeedQuery) {
	if mutes == nil && viewerFid != 0 {
		fetched, err := u.graphClient.GetMutes(ctx, viewerFid)
		if err != nil {
			u.logger.Warn().Err(err).
				Uint64("viewer_fid", viewerFid).
				Msg("Failed to fetch mutes, serving unfiltered")
			return
		}
		mutes = fetched
	}
	if mutes == nil {
		return
	}

	query.MutedFids = mutes.Fids
	query.MutedChannelURLs = mutes.ChannelURLs
	query.MutedWords = mutes.Words
}

func emptyIfNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
