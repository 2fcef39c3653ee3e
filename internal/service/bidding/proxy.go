package bidding

import (
	"sort"

	"github.com/clearbid/auction-engine/internal/domain/bid"
	"github.com/clearbid/auction-engine/internal/domain/values"
)

// proxyOutcome is the result of replaying standing proxies against an
// incoming bid: who leads and at what price.
type proxyOutcome struct {
	// Leader is the winning bid. It is either the incoming bid or one of
	// the standing proxies.
	Leader *bid.Bid
	// Price is the auction's new current bid: a second-price step,
	// min(runner-up ceiling + increment, leader ceiling), floored at the
	// leader's explicit amount.
	Price values.Credits
}

// resolveProxies computes the new leader after a bid arrives. It replays
// the full set of standing proxies from scratch every time; nothing is
// carried over between invocations, so repeated replays of the same inputs
// always agree. Ties on ceiling go to the earliest placed bid, which the
// incoming bid (placed last) always loses.
func resolveProxies(incoming *bid.Bid, standing []*bid.Bid, increment values.Credits) proxyOutcome {
	candidates := make([]*bid.Bid, 0, len(standing)+1)
	// The incoming bid may itself appear in standing when the caller has
	// already stored it; skip duplicates by id.
	for _, s := range standing {
		if s.ID != incoming.ID {
			candidates = append(candidates, s)
		}
	}
	candidates = append(candidates, incoming)

	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := candidates[i].Ceiling(), candidates[j].Ceiling()
		if !ci.Equal(cj) {
			return ci.GreaterThan(cj)
		}
		return candidates[i].PlacedAt.Before(candidates[j].PlacedAt)
	})

	leader := candidates[0]

	// Runner-up ceiling drives the price. With no competition the leader
	// pays its explicit amount.
	price := leader.Amount
	if len(candidates) > 1 {
		runnerUp := candidates[1].Ceiling()
		price = runnerUp.Add(increment).Min(leader.Ceiling())
		if leader.Amount.GreaterThan(price) {
			price = leader.Amount
		}
	}

	return proxyOutcome{Leader: leader, Price: price}
}
