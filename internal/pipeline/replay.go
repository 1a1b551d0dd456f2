package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/tidwall/sjson"

	"github.com/banshee-data/presence.report/internal/detection"
	"github.com/banshee-data/presence.report/internal/timeutil"
)

// maxLineSize bounds a single detector line.
const maxLineSize = 4 * 1024 * 1024

// Replay feeds JSON-lines detector output through a Runner.
type Replay struct {
	Runner    *Runner
	Assembler detection.Assembler
	Clock     *timeutil.StreamClock
}

// Summary counts what a Run did with its input.
type Summary struct {
	Lines     int
	Processed int
	Skipped   int
	Rejected  int
	Commands  int
}

// Run reads lines from r until EOF or cancellation and writes one annotated
// line to w per frame. Malformed lines are logged and dropped; they do not
// stop the run. Only read and write failures are returned.
func (p *Replay) Run(ctx context.Context, r io.Reader, w io.Writer) (Summary, error) {
	var sum Summary
	if p.Clock == nil {
		p.Clock = timeutil.NewStreamClock(nil)
	}

	br := bufio.NewReaderSize(r, 64*1024)
	bw := bufio.NewWriter(w)

	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		raw, oversized, readErr := readLine(br, maxLineSize)
		if readErr != nil && readErr != io.EOF {
			return sum, fmt.Errorf("read input: %w", readErr)
		}

		if oversized {
			sum.Lines++
			sum.Rejected++
			p.Runner.reject()
			opsf("line %d rejected: longer than %d bytes", sum.Lines, maxLineSize)
		} else if line := bytes.TrimSpace(raw); len(line) > 0 {
			sum.Lines++
			out, err := p.handle(line, &sum)
			if err != nil {
				sum.Rejected++
				opsf("line %d rejected: %v", sum.Lines, err)
			} else if out != nil {
				if _, err := bw.Write(append(out, '\n')); err != nil {
					return sum, fmt.Errorf("write output: %w", err)
				}
				if err := bw.Flush(); err != nil {
					return sum, fmt.Errorf("flush output: %w", err)
				}
			}
		}

		if readErr == io.EOF {
			break
		}
	}

	diagf("replay done: %d lines, %d processed, %d skipped, %d rejected, %d commands",
		sum.Lines, sum.Processed, sum.Skipped, sum.Rejected, sum.Commands)
	return sum, nil
}

// handle decodes and evaluates one line. A nil output with a nil error
// means the line produced nothing to write.
func (p *Replay) handle(line []byte, sum *Summary) ([]byte, error) {
	frame, err := detection.DecodeFrame(line)
	if err != nil {
		p.Runner.reject()
		return nil, err
	}

	if frame.Command != nil {
		sum.Commands++
		return nil, p.command(frame.Command)
	}

	batch, err := p.Assembler.Assemble(frame.Boxes)
	if err != nil {
		p.Runner.reject()
		return nil, fmt.Errorf("frame %d: %w", frame.Index, err)
	}

	now := p.Clock.Now()
	if frame.HasTimestamp {
		now = p.Clock.At(frame.Timestamp)
	}

	outcome, skipped, err := p.Runner.Step(batch, now)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", frame.Index, err)
	}
	if skipped {
		sum.Skipped++
	} else {
		sum.Processed++
	}
	return p.annotate(line, outcome, skipped)
}

// readLine returns the next newline-terminated line. A line longer than
// limit is consumed to its end and reported as oversized with no data.
func readLine(br *bufio.Reader, limit int) ([]byte, bool, error) {
	var line []byte
	oversized := false
	for {
		chunk, err := br.ReadSlice('\n')
		if !oversized {
			if len(line)+len(bytes.TrimRight(chunk, "\r\n")) > limit {
				oversized = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return line, oversized, err
	}
}

func (p *Replay) command(cmd *detection.Command) error {
	switch cmd.Name {
	case detection.CommandClear:
		if err := p.Runner.Evaluator.Clear(cmd.IDs...); err != nil {
			return err
		}
		opsf("session %s: cleared %d identities", p.Runner.Evaluator.SessionID(), len(cmd.IDs))
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedCommand, cmd.Name)
	}
}

func (p *Replay) annotate(line []byte, outcome Outcome, skipped bool) ([]byte, error) {
	// Copy so the input line is never modified.
	out := append([]byte(nil), line...)
	var err error
	if outcome != nil {
		if out, err = outcome.Annotate(out); err != nil {
			return nil, err
		}
	}
	if out, err = sjson.SetBytes(out, "skipped", skipped); err != nil {
		return nil, err
	}
	return sjson.SetBytes(out, "session", p.Runner.Evaluator.SessionID())
}
