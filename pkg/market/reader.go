package market

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// BarReader serves date-indexed daily bars. Implementations must be safe for
// concurrent readers; the core never writes through this interface.
type BarReader interface {
	// ReadBar returns the bar for one instrument on one date, or
	// ErrNoMarketData when the instrument did not trade.
	ReadBar(ctx context.Context, instrument string, date time.Time) (Bar, error)
	// ReadRange returns bars between from and to inclusive, ascending by date.
	ReadRange(ctx context.Context, instrument string, from, to time.Time) ([]Bar, error)
}

// MemoryStore is a map-backed BarReader used by tests and campaign fixtures.
// Bars are loaded up front; reads take a shared lock only.
type MemoryStore struct {
	mu   sync.RWMutex
	bars map[string]map[time.Time]Bar
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{bars: make(map[string]map[time.Time]Bar)}
}

// Put stores a bar, replacing any existing record for the same key. The bar
// is validated on the way in so bad data fails at load time, not mid-run.
func (s *MemoryStore) Put(bar Bar) error {
	if err := bar.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	day := Day(bar.Date)
	bar.Date = day
	byDate, ok := s.bars[bar.Instrument]
	if !ok {
		byDate = make(map[time.Time]Bar)
		s.bars[bar.Instrument] = byDate
	}
	byDate[day] = bar
	return nil
}

func (s *MemoryStore) ReadBar(_ context.Context, instrument string, date time.Time) (Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bar, ok := s.bars[instrument][Day(date)]
	if !ok {
		return Bar{}, fmt.Errorf("%w: %s on %s", ErrNoMarketData, instrument, Day(date).Format(time.DateOnly))
	}
	return bar, nil
}

func (s *MemoryStore) ReadRange(_ context.Context, instrument string, from, to time.Time) ([]Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byDate, ok := s.bars[instrument]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoMarketData, instrument)
	}
	fromDay, toDay := Day(from), Day(to)
	var out []Bar
	for day, bar := range byDate {
		if day.Before(fromDay) || day.After(toDay) {
			continue
		}
		out = append(out, bar)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
