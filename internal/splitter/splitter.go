// Package splitter spreads one entry across several child orders inside a
// price band around the entry price.
package splitter

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sniper/internal/models"
)

type Split struct {
	Price float64
	Size  float64
}

// Planner draws split prices and sizes from its own random source so runs can
// be replayed with a fixed seed.
type Planner struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func New(src rand.Source) *Planner {
	return &Planner{rng: rand.New(src)}
}

func NewSeeded(seed uint64) *Planner {
	return New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func NewDefault() *Planner {
	return NewSeeded(uint64(time.Now().UnixNano()))
}

// Generate returns splitCount (price, size) pairs whose sizes add up to totalSize.
// Market splits all sit at entryPrice with equal shares. Limit splits get a
// random price inside entryPrice ± bandPercent and a random size of at least
// half the even share; the last split takes whatever is left.
func (p *Planner) Generate(entryPrice, bandPercent float64, splitCount int, totalSize float64, style models.OrderStyle) []Split {
	if splitCount < 1 || totalSize <= 0 {
		return nil
	}
	if style == models.OrderStyleMarket {
		return marketSplits(entryPrice, splitCount, totalSize)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	minPrice := entryPrice * (1 - bandPercent/100)
	maxPrice := entryPrice * (1 + bandPercent/100)
	even := totalSize / float64(splitCount)
	total := decimal.NewFromFloat(totalSize)
	allocated := decimal.Zero
	remaining := totalSize

	splits := make([]Split, 0, splitCount)
	for i := 0; i < splitCount; i++ {
		price := p.uniform(minPrice, maxPrice)

		var size float64
		if i == splitCount-1 {
			size = total.Sub(allocated).InexactFloat64()
		} else {
			maxSplit := remaining - float64(splitCount-i-1)*even*0.5
			size = p.uniform(even*0.5, maxSplit)
			if size > remaining {
				size = remaining
			}
		}

		splits = append(splits, Split{Price: price, Size: size})
		allocated = allocated.Add(decimal.NewFromFloat(size))
		remaining = total.Sub(allocated).InexactFloat64()
	}
	return splits
}

func marketSplits(entryPrice float64, splitCount int, totalSize float64) []Split {
	total := decimal.NewFromFloat(totalSize)
	share := total.Div(decimal.NewFromInt(int64(splitCount)))
	shareF := share.InexactFloat64()

	splits := make([]Split, splitCount)
	for i := 0; i < splitCount-1; i++ {
		splits[i] = Split{Price: entryPrice, Size: shareF}
	}
	last := total.Sub(decimal.NewFromFloat(shareF).Mul(decimal.NewFromInt(int64(splitCount - 1))))
	splits[splitCount-1] = Split{Price: entryPrice, Size: last.InexactFloat64()}
	return splits
}

func (p *Planner) uniform(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + (hi-lo)*p.rng.Float64()
}

func TotalSize(splits []Split) float64 {
	sum := decimal.Zero
	for _, s := range splits {
		sum = sum.Add(decimal.NewFromFloat(s.Size))
	}
	return sum.InexactFloat64()
}
