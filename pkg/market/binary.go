package market

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/exp/mmap"

	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/fixed"
)

// BinaryBar is the fixed-size on-disk record of a daily bar. Dates are unix
// seconds at UTC midnight; prices are stored as floats and converted to
// fixed-point on read.
type BinaryBar struct {
	UnixDate int64
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// source reads fixed-size records from a memory-mapped file.
type source struct {
	dataSourceName string
	reader         *mmap.ReaderAt
	bufferPool     *sync.Pool
}

func newSource(dataSourceName string) *source {
	return &source{
		dataSourceName: dataSourceName,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				buffer := make([]byte, int(unsafe.Sizeof(BinaryBar{})))
				return &buffer
			},
		},
	}
}

func (s *source) open() error {
	var err error
	s.reader, err = mmap.Open(s.dataSourceName)
	if err != nil {
		return fmt.Errorf("unable to open data source %q: %w", s.dataSourceName, err)
	}
	return nil
}

func (s *source) close() {
	_ = s.reader.Close()
}

func (s *source) read(index int64, record *BinaryBar) error {
	buffer := s.bufferPool.Get().(*[]byte)
	defer s.bufferPool.Put(buffer)

	offset := index * int64(len(*buffer))

	n, err := s.reader.ReadAt(*buffer, offset)
	if err != nil && err != io.EOF {
		return fmt.Errorf("unable to read: %w", err)
	}
	if n < len(*buffer) {
		return io.EOF
	}

	*record = *(*BinaryBar)(unsafe.Pointer(&(*buffer)[0])) // #nosec G103
	return nil
}

func (s *source) entryCount() (int64, error) {
	entrySize := int64(unsafe.Sizeof(BinaryBar{}))

	fileInfo, err := os.Stat(s.dataSourceName)
	if err != nil {
		return 0, fmt.Errorf("unable to get data source %q stats: %w", s.dataSourceName, err)
	}

	totalSize := fileInfo.Size()
	if totalSize%entrySize != 0 {
		return 0, fmt.Errorf("file size is not a multiple of entry size")
	}
	return totalSize / entrySize, nil
}

// BarFile is a BarReader over one instrument's mmap-backed bar file. Records
// must be sorted ascending by date; lookups binary-search the file.
type BarFile struct {
	instrument string
	src        *source
	count      int64
}

func OpenBarFile(instrument, path string) (*BarFile, error) {
	src := newSource(path)
	if err := src.open(); err != nil {
		return nil, err
	}
	count, err := src.entryCount()
	if err != nil {
		src.close()
		return nil, err
	}
	return &BarFile{instrument: instrument, src: src, count: count}, nil
}

func (f *BarFile) Close() {
	f.src.close()
}

func (f *BarFile) ReadBar(_ context.Context, instrument string, date time.Time) (Bar, error) {
	if instrument != f.instrument {
		return Bar{}, fmt.Errorf("%w: %s not served by this file", ErrNoMarketData, instrument)
	}
	target := Day(date).Unix()

	lo, hi := int64(0), f.count-1
	var record BinaryBar
	for lo <= hi {
		mid := lo + (hi-lo)/2
		if err := f.src.read(mid, &record); err != nil {
			return Bar{}, err
		}
		switch {
		case record.UnixDate == target:
			return f.toBar(record)
		case record.UnixDate < target:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return Bar{}, fmt.Errorf("%w: %s on %s", ErrNoMarketData, instrument, Day(date).Format(time.DateOnly))
}

func (f *BarFile) ReadRange(_ context.Context, instrument string, from, to time.Time) ([]Bar, error) {
	if instrument != f.instrument {
		return nil, fmt.Errorf("%w: %s not served by this file", ErrNoMarketData, instrument)
	}
	fromUnix, toUnix := Day(from).Unix(), Day(to).Unix()

	var bars []Bar
	var record BinaryBar
	for idx := int64(0); idx < f.count; idx++ {
		if err := f.src.read(idx, &record); err != nil {
			return nil, err
		}
		if record.UnixDate < fromUnix {
			continue
		}
		if record.UnixDate > toUnix {
			break
		}
		bar, err := f.toBar(record)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func (f *BarFile) toBar(record BinaryBar) (Bar, error) {
	bar := Bar{
		Instrument: f.instrument,
		Date:       time.Unix(record.UnixDate, 0).UTC(),
		Open:       fixed.FromFloat64(record.Open),
		High:       fixed.FromFloat64(record.High),
		Low:        fixed.FromFloat64(record.Low),
		Close:      fixed.FromFloat64(record.Close),
		Volume:     fixed.FromFloat64(record.Volume),
	}
	if err := bar.Validate(); err != nil {
		return Bar{}, err
	}
	return bar, nil
}
