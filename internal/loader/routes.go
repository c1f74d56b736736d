package loader

import (
	"context"
	"strings"

	"github.com/d60-Lab/reveal-client/internal/cache"
	"github.com/d60-Lab/reveal-client/internal/model"
)

func userPageRefs(p model.Page[model.User]) []cache.Ref {
	refs := make([]cache.Ref, 0, len(p.Data))
	for _, u := range p.Data {
		refs = append(refs, cache.UserRef(u.Username))
	}
	return refs
}

func threadPageRefs(p model.Page[model.Thread]) []cache.Ref {
	refs := make([]cache.Ref, 0, len(p.Data))
	for _, t := range p.Data {
		refs = append(refs, cache.ThreadRef(t.ID))
	}
	return refs
}

func requestPageRefs(p model.Page[model.RevealRequest]) []cache.Ref {
	refs := make([]cache.Ref, 0, len(p.Data))
	for _, r := range p.Data {
		refs = append(refs, cache.RequestRef(r.ID))
	}
	return refs
}

// Profile resolves the profile screen. A malformed username redirects to the
// not-found route without a network call.
func (l *Loaders) Profile(ctx context.Context, username string) Result[model.User] {
	username = strings.TrimSpace(username)
	if username == "" {
		return Result[model.User]{Redirect: RouteNotFound}
	}
	return load(ctx, l, cache.ProfileKey(username), RouteNotFound,
		func(ctx context.Context) (model.User, error) {
			u, err := l.api.GetProfile(ctx, username)
			if err != nil {
				return model.User{}, err
			}
			return *u, nil
		},
		func(u model.User) []cache.Ref { return []cache.Ref{cache.UserRef(u.Username)} },
	)
}

func (l *Loaders) Followers(ctx context.Context, username string, page int) Result[model.Page[model.User]] {
	return load(ctx, l, cache.FollowersKey(username, page, l.pageSize), RouteHome,
		func(ctx context.Context) (model.Page[model.User], error) {
			return l.api.ListFollowers(ctx, username, page, l.pageSize)
		}, userPageRefs)
}

func (l *Loaders) Following(ctx context.Context, username string, page int) Result[model.Page[model.User]] {
	return load(ctx, l, cache.FollowingKey(username, page, l.pageSize), RouteHome,
		func(ctx context.Context) (model.Page[model.User], error) {
			return l.api.ListFollowing(ctx, username, page, l.pageSize)
		}, userPageRefs)
}

func (l *Loaders) SearchUsers(ctx context.Context, query string, page int) Result[model.Page[model.User]] {
	return load(ctx, l, cache.UserSearchKey(query, page, l.pageSize), RouteHome,
		func(ctx context.Context) (model.Page[model.User], error) {
			return l.api.SearchUsers(ctx, query, page, l.pageSize)
		}, userPageRefs)
}

func (l *Loaders) IncomingRequests(ctx context.Context, page int) Result[model.Page[model.RevealRequest]] {
	return load(ctx, l, cache.IncomingRequestsKey(page, l.pageSize), RouteHome,
		func(ctx context.Context) (model.Page[model.RevealRequest], error) {
			return l.api.ListIncomingRequests(ctx, page, l.pageSize)
		}, requestPageRefs)
}

func (l *Loaders) SentRequests(ctx context.Context, page int) Result[model.Page[model.RevealRequest]] {
	return load(ctx, l, cache.SentRequestsKey(page, l.pageSize), RouteHome,
		func(ctx context.Context) (model.Page[model.RevealRequest], error) {
			return l.api.ListSentRequests(ctx, page, l.pageSize)
		}, requestPageRefs)
}

func (l *Loaders) RevealedByMe(ctx context.Context, page int) Result[model.Page[model.ProfileReveal]] {
	return load(ctx, l, cache.RevealedByMeKey(page, l.pageSize), RouteHome,
		func(ctx context.Context) (model.Page[model.ProfileReveal], error) {
			return l.api.ListRevealedByMe(ctx, page, l.pageSize)
		}, nil)
}

func (l *Loaders) PendingCount(ctx context.Context) Result[int] {
	return load(ctx, l, cache.PendingCountKey, RouteHome,
		func(ctx context.Context) (int, error) {
			return l.api.PendingRequestCount(ctx)
		}, nil)
}

func (l *Loaders) Feed(ctx context.Context, page int) Result[model.Page[model.Thread]] {
	return load(ctx, l, cache.FeedKey(page, l.pageSize), RouteHome,
		func(ctx context.Context) (model.Page[model.Thread], error) {
			return l.api.GetFeed(ctx, page, l.pageSize)
		}, threadPageRefs)
}

func (l *Loaders) Thread(ctx context.Context, id string) Result[model.Thread] {
	if strings.TrimSpace(id) == "" {
		return Result[model.Thread]{Redirect: RouteNotFound}
	}
	return load(ctx, l, cache.ThreadKey(id), RouteNotFound,
		func(ctx context.Context) (model.Thread, error) {
			t, err := l.api.GetThread(ctx, id)
			if err != nil {
				return model.Thread{}, err
			}
			return *t, nil
		},
		func(t model.Thread) []cache.Ref { return []cache.Ref{cache.ThreadRef(t.ID)} },
	)
}

func (l *Loaders) Replies(ctx context.Context, threadID string, page int) Result[model.Page[model.Thread]] {
	return load(ctx, l, cache.RepliesKey(threadID, page, l.pageSize), RouteNotFound,
		func(ctx context.Context) (model.Page[model.Thread], error) {
			return l.api.ListReplies(ctx, threadID, page, l.pageSize)
		}, threadPageRefs)
}

func (l *Loaders) UserThreads(ctx context.Context, username string, page int) Result[model.Page[model.Thread]] {
	return load(ctx, l, cache.UserThreadsKey(username, page, l.pageSize), RouteNotFound,
		func(ctx context.Context) (model.Page[model.Thread], error) {
			return l.api.ListUserThreads(ctx, username, page, l.pageSize)
		}, threadPageRefs)
}

func (l *Loaders) OwnPhotos(ctx context.Context) Result[[]model.Photo] {
	return load(ctx, l, cache.OwnPhotosKey, RouteHome,
		func(ctx context.Context) ([]model.Photo, error) {
			return l.api.ListPhotos(ctx)
		}, nil)
}

func (l *Loaders) OwnLinks(ctx context.Context) Result[[]model.Link] {
	return load(ctx, l, cache.OwnLinksKey, RouteHome,
		func(ctx context.Context) ([]model.Link, error) {
			return l.api.ListLinks(ctx)
		}, nil)
}

func (l *Loaders) Tags(ctx context.Context) Result[[]model.Tag] {
	return load(ctx, l, cache.TagsKey, RouteHome,
		func(ctx context.Context) ([]model.Tag, error) {
			return l.api.ListTags(ctx)
		}, nil)
}
