// Package vault reconciles weekly activity and maps it onto the seven weekly
// vault reward slots.
package vault

import (
	"github.com/okian/vaultsync/internal/domain/model"
)

// Reconciler merges per-source raid kill counts.
type Reconciler struct {
	bossCap int
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithBossCap clamps each merged difficulty to at most n bosses. Zero or less
// disables the clamp.
func WithBossCap(n int) ReconcilerOption {
	return func(r *Reconciler) {
		r.bossCap = n
	}
}

// NewReconciler creates a Reconciler. By default merged counts are not
// clamped.
func NewReconciler(opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Merge returns the element-wise maximum of the source counts, clamped when a
// boss cap is configured.
func (r *Reconciler) Merge(sources ...model.KillCounts) model.KillCounts {
	var out model.KillCounts
	for _, s := range sources {
		out = out.Max(s)
	}
	if r.bossCap > 0 {
		for _, d := range model.Difficulties() {
			out.Set(d, min(out.Get(d), r.bossCap))
		}
	}
	return out
}

// Merge is the unclamped element-wise maximum of a and b.
func Merge(a, b model.KillCounts) model.KillCounts {
	return a.Max(b)
}
