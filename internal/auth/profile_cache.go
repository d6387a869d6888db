package auth

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/thumbx/internal/models"
	"github.com/desertthunder/thumbx/internal/services"
	"github.com/desertthunder/thumbx/internal/shared"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// every fetch shares one key, so a second caller joins the in-flight fetch whatever the user id
const profileKey = "profile"

// ProfileCache loads billing profiles into a [Store].
//
// At most one fetch runs at a time. Successful results are also memoized per user so a later failure can
// fall back to the last known value instead of the default profile.
type ProfileCache struct {
	store  *Store
	source services.ProfileSource
	group  singleflight.Group
	memo   *cache.Cache
	logger *log.Logger
}

// NewProfileCache creates a cache writing into store.
func NewProfileCache(store *Store, source services.ProfileSource, logger *log.Logger) *ProfileCache {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ProfileCache{
		store:  store,
		source: source,
		memo:   cache.New(30*time.Minute, time.Hour),
		logger: shared.WithLogger(logger, "component", "profiles"),
	}
}

// FetchProfile loads the profile for userID unless it is already held or another fetch is in flight.
// Errors are logged and never returned.
//
// A joined fetch may have been for a different user. When it settles and the active user's profile is
// still missing, the active user is fetched next.
func (c *ProfileCache) FetchProfile(ctx context.Context, userID string) {
	c.fetch(ctx, userID, false)
}

// RefreshProfile invalidates the cached owner and fetches again for the signed-in user.
// A read already in flight is joined and then followed by a new one.
func (c *ProfileCache) RefreshProfile(ctx context.Context) error {
	c.store.Dispatch(OwnerInvalidated{})

	userID := c.store.State().UserID()
	if userID == "" {
		return shared.ErrNoSession
	}
	c.fetch(ctx, userID, true)
	return nil
}

func (c *ProfileCache) fetch(ctx context.Context, userID string, fresh bool) {
	joined := false
	for userID != "" {
		if !fresh && c.holds(userID) {
			return
		}

		led := false
		v, _, _ := c.group.Do(profileKey, func() (any, error) {
			led = true
			c.load(ctx, userID)
			return userID, nil
		})

		// the joined read started before this refresh; any call now in flight started after it
		if fresh && !led && !joined {
			joined = true
			continue
		}

		loaded, _ := v.(string)
		active := c.store.State().UserID()
		if active == "" || active == loaded || ctx.Err() != nil {
			return
		}
		c.logger.Debug("active user changed during fetch", "loaded", loaded, "active", active)
		userID = active
	}
}

func (c *ProfileCache) holds(userID string) bool {
	st := c.store.State()
	return st.CachedOwner == userID && st.Profile != nil
}

// DecrementCredits lowers the held balance by amount (one when amount < 1), floored at zero.
// The next fetch overwrites it.
func (c *ProfileCache) DecrementCredits(amount int) {
	if amount < 1 {
		amount = 1
	}
	if !c.store.Dispatch(CreditsDecremented{Amount: amount}) {
		return
	}
	if st := c.store.State(); st.Profile != nil {
		c.memo.Set(st.Profile.ID, *st.Profile, cache.DefaultExpiration)
	}
}

// Forget drops the memoized profile for userID.
func (c *ProfileCache) Forget(userID string) {
	c.memo.Delete(userID)
}

func (c *ProfileCache) load(ctx context.Context, userID string) {
	held := c.store.State().Profile != nil
	if !held {
		c.store.Dispatch(ProfileLoading{})
	}
	defer c.store.Dispatch(ProfileSettled{})

	logger := shared.WithLogger(c.logger, "user", userID)
	p, err := c.source.Profile(ctx, userID)
	if err == nil {
		c.memo.Set(userID, *p, cache.DefaultExpiration)
		if !c.store.Dispatch(ProfileLoaded{UserID: userID, Profile: *p, Owned: true}) {
			logger.Debug("discarding profile for inactive user")
		}
		return
	}

	if held {
		logger.Warn("profile fetch failed, keeping cached profile", "error", err)
		return
	}

	fallback := *models.DefaultProfile(userID)
	if v, ok := c.memo.Get(userID); ok {
		fallback = v.(models.Profile)
		logger.Warn("profile fetch failed, using last known profile", "error", err)
	} else {
		logger.Warn("profile fetch failed, using default profile", "error", err)
	}
	c.store.Dispatch(ProfileLoaded{UserID: userID, Profile: fallback})
}
