package feed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"pacetrack/internal/parser"
	"pacetrack/internal/tracker"
)

// Stream forwards a live JSON-lines feed (one fix or heart-rate reading per
// line) into a loop. Lines without a time are stamped on arrival.
type Stream struct {
	Reader io.Reader
	Now    func() time.Time
	// OnBadLine is told about undecodable lines, which are skipped
	OnBadLine func(lineNo int, err error)
}

// Feed reads until EOF or ctx ends
func (s *Stream) Feed(ctx context.Context, l *Loop) error {
	now := s.Now
	if now == nil {
		now = time.Now
	}

	scanner := bufio.NewScanner(s.Reader)
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		lineNo++

		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		line, err := parser.DecodeLine(raw)
		if err != nil {
			if s.OnBadLine != nil {
				s.OnBadLine(lineNo, err)
			}
			continue
		}
		if line.Time.IsZero() {
			line.Time = now()
		}

		if line.HasPosition() {
			if err := l.SubmitSample(ctx, line.Sample()); err != nil {
				return err
			}
		}
		if line.HR != nil {
			hr := tracker.HeartRateSample{BPM: *line.HR, Timestamp: line.Time}
			if err := l.SubmitHeartRate(ctx, hr); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading feed: %w", err)
	}
	return nil
}
