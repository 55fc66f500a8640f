// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package network

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Tier is the Slack API rate limit tier, in events per minute, see
// https://api.slack.com/docs/rate-limits
type Tier int

const (
	NoTier Tier = 6000 // calls that are not paced
	Tier2  Tier = 20
	Tier3  Tier = 50
	Tier4  Tier = 100
)

// Limiters holds one limiter per Slack tier.  It is safe for concurrent use.
type Limiters struct {
	tier2 *rate.Limiter
	tier3 *rate.Limiter
	tier4 *rate.Limiter
}

// NewLimiters creates tier limiters configured from l.
func NewLimiters(l Limits) *Limiters {
	return &Limiters{
		tier2: newLimiter(Tier2, l.Tier2),
		tier3: newLimiter(Tier3, l.Tier3),
		tier4: newLimiter(Tier4, l.Tier4),
	}
}

// newLimiter returns the limiter for tier t, with the tier rate increased by
// the boost and the burst from tl.  Burst is at least 1.
func newLimiter(t Tier, tl TierLimit) *rate.Limiter {
	every := time.Minute / time.Duration(int(t)+int(tl.Boost))
	return rate.NewLimiter(rate.Every(every), max(int(tl.Burst), 1))
}

// Wait blocks until the limiter for tier t permits an event or ctx is
// done.  NoTier never blocks.
func (ls *Limiters) Wait(ctx context.Context, t Tier) error {
	lim, err := ls.limiter(t)
	if err != nil {
		return err
	}
	if lim == nil {
		return nil
	}
	return lim.Wait(ctx)
}

func (ls *Limiters) limiter(t Tier) (*rate.Limiter, error) {
	switch t {
	case NoTier:
		return nil, nil
	case Tier2:
		return ls.tier2, nil
	case Tier3:
		return ls.tier3, nil
	case Tier4:
		return ls.tier4, nil
	}
	return nil, fmt.Errorf("unknown tier: %d", t)
}
