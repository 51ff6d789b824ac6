package purchase

import (
	"context"

	"golang.org/x/sync/singleflight"
)

var summaryGroup singleflight.Group

// summaryGroupDo collapses concurrent summary computations for the same
// version into a single repository round trip.
func summaryGroupDo(ctx context.Context, key string, fn func() (Summary, error)) (Summary, error, bool) {
	ch := summaryGroup.DoChan(key, func() (any, error) {
		return fn()
	})
	select {
	case <-ctx.Done():
		return Summary{}, ctx.Err(), false
	case res := <-ch:
		if res.Err != nil {
			return Summary{}, res.Err, res.Shared
		}
		return res.Val.(Summary), nil, res.Shared
	}
}
