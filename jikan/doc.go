// Package jikan is a client for the Jikan REST API (https://jikan.moe), an
// unofficial MyAnimeList API.
//
// Every request passes through the same pipeline:
//
//	Memoizer -> observe.Middleware -> RateLimiter -> HTTP GET
//
// Successful responses are cached per client in an LRU keyed on the
// endpoint and query parameters, so a repeated lookup costs neither a
// network round trip nor a rate limit slot. Failed requests are never
// cached. Each Client owns its own limiter and cache.
//
//	c, err := jikan.New(jikan.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	anime, err := c.GetAnime(ctx, 1)
//
// Lookups can also run concurrently through call.Go:
//
//	f := call.Go(ctx, c.AnimeFetcher(), 1)
//	anime, err := f.Await(ctx)
package jikan
