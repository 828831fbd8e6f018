package builder

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Bad block errors.
var (
	ErrBadBlockBeforeData = errors.New("bad blocks before data-area: cannot make fs")
	ErrBadBlockList       = errors.New("can't open file of bad blocks")
	ErrBadBlockNumber     = errors.New("bad block number out of range")
)

// DefaultChunkBlocks is the read size of the bad block scan
const DefaultChunkBlocks = 16

// progressInterval is how often the scan reports its position
const progressInterval = 5 * time.Second

// scanBadBlocks reads every block of the file system and marks each one that
// fails as in use. Chunks that do not read completely are narrowed down to
// the failing block and the scan resumes after it.
func (s *Service) scanBadBlocks(ctx context.Context) (uint32, error) {
	chunk := s.opts.ChunkBlocks
	if chunk <= 0 {
		chunk = DefaultChunkBlocks
	}

	zones := s.geo.Zones
	var bad uint32
	var current uint32
	lastReport := time.Now()

	for current < zones {
		if err := ctx.Err(); err != nil {
			return bad, err
		}
		if time.Since(lastReport) >= progressInterval {
			fmt.Fprintf(s.out, "%d ...", current)
			lastReport = time.Now()
		}

		try := chunk
		if uint64(current)+uint64(try) > uint64(zones) {
			try = int(zones - current)
		}
		got, err := s.dev.ReadBlocks(current, try)
		current += uint32(got)
		if got == try {
			continue
		}

		if current < s.geo.FirstDataZone {
			return bad, fmt.Errorf("%w: block %d", ErrBadBlockBeforeData, current)
		}
		s.log.WithFields(logrus.Fields{"block": current}).WithError(err).Debug("bad block")
		s.maps.MarkZone(current)
		bad++
		current++
	}
	return bad, nil
}

// readBadBlockList marks every block number listed in path as in use.
// Numbers are whitespace separated; duplicates are counted once.
func (s *Service) readBadBlockList(fs afero.Fs, path string) (uint32, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadBlockList, err)
	}

	var bad uint32
	for _, field := range strings.Fields(string(data)) {
		n, err := strconv.ParseUint(field, 10, 32)
		if err != nil {
			return bad, fmt.Errorf("%w: %q", ErrBadBlockNumber, field)
		}
		block := uint32(n)
		if !s.geo.IsValidZone(block) {
			return bad, fmt.Errorf("%w: %d", ErrBadBlockNumber, block)
		}
		if s.maps.ZoneInUse(block) {
			continue
		}
		s.maps.MarkZone(block)
		bad++
	}
	return bad, nil
}

// reportBadBlocks prints the bad block tally
func (s *Service) reportBadBlocks(bad uint32) {
	switch {
	case bad > 1:
		fmt.Fprintf(s.out, "%d bad blocks\n", bad)
	case bad == 1:
		fmt.Fprintf(s.out, "one bad block\n")
	}
}
