package source

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/addrindex/addrindex/internal/address"
)

// progressEvery controls how often the JSONL source logs throughput.
const progressEvery = 100000

// JSONL reads newline-delimited JSON address records, the format the
// extraction stage emits. Lines may carry the extractor's 4-byte entity tag
// ("nod ", "way ", "rel ") before the JSON object. Malformed lines and
// unsalvageable records are counted and skipped, not fatal; country codes
// are normalised on the way through.
type JSONL struct {
	scanner   *bufio.Scanner
	bytesRead int64
	accepted  int64
	skipped   int64
	malformed int64
	started   time.Time
	logger    *slog.Logger
}

func NewJSONL(r io.Reader) *JSONL {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &JSONL{
		scanner: sc,
		started: time.Now(),
		logger:  slog.Default().With("component", "jsonl-source"),
	}
}

func (s *JSONL) Next(ctx context.Context) (address.Record, error) {
	for {
		if err := ctx.Err(); err != nil {
			return address.Record{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return address.Record{}, err
			}
			s.logProgress()
			return address.Record{}, io.EOF
		}
		line := s.scanner.Bytes()
		s.bytesRead += int64(len(line)) + 1
		line = stripEntityTag(line)
		if len(line) == 0 {
			continue
		}

		var inc address.Incomplete
		if err := json.Unmarshal(line, &inc); err != nil {
			s.malformed++
			continue
		}
		if inc.Unfixable() {
			s.skipped++
			continue
		}
		rec := inc.Record()
		rec.Country = address.NormalizeCountry(rec.Country)

		s.accepted++
		if s.accepted%progressEvery == 0 {
			s.logProgress()
		}
		return rec, nil
	}
}

// Counts returns accepted, skipped, and malformed line totals so far.
func (s *JSONL) Counts() (accepted, skipped, malformed int64) {
	return s.accepted, s.skipped, s.malformed
}

func (s *JSONL) logProgress() {
	elapsed := time.Since(s.started)
	rate := float64(s.bytesRead) / elapsed.Seconds()
	s.logger.Info("reading records",
		"accepted", s.accepted,
		"skipped", s.skipped,
		"malformed", s.malformed,
		"input", humanize.Bytes(uint64(s.bytesRead)),
		"throughput", humanize.Bytes(uint64(rate))+"/s",
		"elapsed", elapsed.Round(time.Second),
	)
}

// stripEntityTag removes the extractor's "nod "/"way "/"rel " prefix.
func stripEntityTag(line []byte) []byte {
	if len(line) >= 4 && line[3] == ' ' {
		switch string(line[:3]) {
		case "nod", "way", "rel":
			return line[4:]
		}
	}
	return line
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
