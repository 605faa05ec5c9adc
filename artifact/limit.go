package artifact

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited throttles writes to an underlying Store to a byte rate.
type RateLimited struct {
	Store
	limiter *rate.Limiter
}

// NewRateLimited wraps s so that Put consumes at most bytesPerSec.
// A non-positive rate disables the limit and returns s unchanged.
func NewRateLimited(s Store, bytesPerSec int) Store {
	if bytesPerSec <= 0 {
		return s
	}
	return &RateLimited{
		Store:   s,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), bytesPerSec),
	}
}

func (r *RateLimited) Put(ctx context.Context, name string, data []byte) error {
	burst := r.limiter.Burst()
	for n := len(data); n > 0; n -= burst {
		if err := r.limiter.WaitN(ctx, min(n, burst)); err != nil {
			return err
		}
	}
	return r.Store.Put(ctx, name, data)
}

func (r *RateLimited) Get(ctx context.Context, name string) ([]byte, error) {
	return Get(ctx, r.Store, name)
}
