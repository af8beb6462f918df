// Copyright (c) 2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package optimizer

import (
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/leonardoaniello/storm-adaptive-schedulers/pkg/placement/models"
)

// move is a tentative placement of an item into a bin.
type move[I, B comparable] struct {
	item I
	bin  B
}

// evaluate applies the moves, measures the traffic of the level and undoes
// the moves in reverse order. The level is left as it was found.
func evaluate[I, B comparable](l level[I, B], moves ...move[I, B]) (int64, error) {
	for i, m := range moves {
		if err := l.assign(m.bin, m.item); err != nil {
			for j := i - 1; j >= 0; j-- {
				l.remove(moves[j].bin, moves[j].item)
			}
			return 0, err
		}
	}
	score := l.traffic()
	for i := len(moves) - 1; i >= 0; i-- {
		if err := l.remove(moves[i].bin, moves[i].item); err != nil {
			return 0, err
		}
	}
	return score, nil
}

// relocate measures the traffic of the level with item moved from one bin
// to another, then puts item back.
func relocate[I, B comparable](l level[I, B], item I, from, to B) (int64, error) {
	if err := l.remove(from, item); err != nil {
		return 0, err
	}
	score, err := evaluate(l, move[I, B]{item: item, bin: to})
	if rerr := l.assign(from, item); rerr != nil && err == nil {
		err = rerr
	}
	return score, err
}

// leastLoaded returns the least loaded bin able to take all the items. The
// first bin wins ties.
func leastLoaded[I, B comparable](l level[I, B], items ...I) (B, bool) {
	var best B
	found := false
	for _, b := range l.bins() {
		if !l.fits(b, items...) {
			continue
		}
		if !found || l.load(b) < l.load(best) {
			best = b
			found = true
		}
	}
	return best, found
}

// placePair places the two ends of a traffic edge.
//
// When neither is placed both go to the least loaded bin able to take the
// pair, or else each to its own least loaded bin, source first. Otherwise
// the bins holding either end plus the least loaded bin able to take the
// heavier end are the candidates: both ends are lifted and every ordered
// combination of candidates is measured, and the one with the least traffic
// is committed.
func placePair[I, B comparable](l level[I, B], src, dst I) error {
	srcBin, srcPlaced := l.binOf(src)
	dstBin, dstPlaced := l.binOf(dst)

	if !srcPlaced && !dstPlaced {
		if b, ok := leastLoaded(l, src, dst); ok {
			if err := l.assign(b, src); err != nil {
				return err
			}
			return l.assign(b, dst)
		}
		for _, item := range []I{src, dst} {
			if err := placeAlone(l, item); err != nil {
				return err
			}
		}
		return nil
	}

	heavier := src
	if l.itemLoad(dst) > l.itemLoad(src) {
		heavier = dst
	}
	least, hasLeast := leastLoaded(l, heavier)
	candidates := candidateBins(l, srcBin, srcPlaced, dstBin, dstPlaced, least, hasLeast)

	if srcPlaced {
		if err := l.remove(srcBin, src); err != nil {
			return err
		}
	}
	if dstPlaced {
		if err := l.remove(dstBin, dst); err != nil {
			return err
		}
	}

	var bestSrc, bestDst B
	var bestScore int64
	found := false
	for _, cs := range candidates {
		for _, cd := range candidates {
			if cs == cd {
				if !l.fits(cs, src, dst) {
					continue
				}
			} else if !l.fits(cs, src) || !l.fits(cd, dst) {
				continue
			}
			score, err := evaluate(l,
				move[I, B]{item: src, bin: cs},
				move[I, B]{item: dst, bin: cd})
			if err != nil {
				return err
			}
			if !found || score < bestScore {
				bestSrc, bestDst, bestScore = cs, cd, score
				found = true
			}
		}
	}

	if !found {
		// Only reachable with a single end placed: put it back and place
		// the other one on its own.
		if srcPlaced {
			if err := l.assign(srcBin, src); err != nil {
				return err
			}
			return placeAlone(l, dst)
		}
		if err := l.assign(dstBin, dst); err != nil {
			return err
		}
		return placeAlone(l, src)
	}

	if err := l.assign(bestSrc, src); err != nil {
		return err
	}
	return l.assign(bestDst, dst)
}

// candidateBins lists the distinct candidate bins in level order.
func candidateBins[I, B comparable](
	l level[I, B],
	srcBin B, srcPlaced bool,
	dstBin B, dstPlaced bool,
	least B, hasLeast bool) []B {
	var result []B
	for _, b := range l.bins() {
		if (srcPlaced && b == srcBin) ||
			(dstPlaced && b == dstBin) ||
			(hasLeast && b == least) {
			result = append(result, b)
		}
	}
	return result
}

func placeAlone[I, B comparable](l level[I, B], item I) error {
	b, ok := leastLoaded(l, item)
	if !ok {
		return errors.Wrapf(models.ErrInfeasible, "no bin can take %v", item)
	}
	if err := l.assign(b, item); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"item": fmt.Sprint(item),
		"bin":  fmt.Sprint(b),
	}).Debug("placed on least loaded bin")
	return nil
}
