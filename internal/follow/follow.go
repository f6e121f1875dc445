package follow

import (
	"context"
	"time"
)

// Kind is the follow category. Each kind has its own matching rule in the
// engine; the index treats kinds as opaque namespaces.
type Kind string

const (
	KindPerson   Kind = "person"
	KindOrg      Kind = "org"
	KindFunction Kind = "function"
	KindName     Kind = "name"
	KindAlert    Kind = "alert"
)

// Kinds lists every follow kind in processing order.
func Kinds() []Kind {
	return []Kind{KindPerson, KindOrg, KindFunction, KindName, KindAlert}
}

// Follow is one (item, watermark) pair of a user's subscription.
//
// Watermark is non-decreasing over the follow's lifetime and is only ever
// set after a notification for this item was confirmed delivered. The zero
// time means "never notified".
type Follow struct {
	Key       string
	Watermark time.Time
}

// User is the minimal projection the engine needs: identity, delivery
// coordinates and the follows relevant to the current query.
type User struct {
	ID      int64
	Channel string
	Address string
	Follows []Follow
}

// Index is the read/write contract against the persistent follow store.
type Index interface {
	// FindUsersFollowing returns the users holding at least one follow of
	// the kind matching itemKeys. An empty itemKeys slice returns every
	// user with a follow of that kind; the textual kinds need this because
	// their matching happens in the engine, not in the store.
	FindUsersFollowing(ctx context.Context, kind Kind, itemKeys []string) ([]User, error)

	// AdvanceWatermarks moves the watermarks of the given (user, kind, item)
	// rows forward to watermark in a single batched conditional update.
	// Rows whose stored watermark is already >= watermark are untouched, so
	// the advance can never move a watermark backwards.
	AdvanceWatermarks(ctx context.Context, userID int64, kind Kind, itemKeys []string, watermark time.Time) error
}
