// Package capture reads pose estimator frames encoded as JSON lines.
//
// Each line holds either keypoints keyed by joint role index,
//
//	{"keypoints":{"11":[320,180],"13":[330,260],"15":[300,330]}}
//
// or a precomputed angle, {"angle":92.5}. Lines that fail to decode are
// delivered as frames without a sample.
package capture

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"codeberg.org/mutker/formctl/internal/errors"
	"codeberg.org/mutker/formctl/internal/logger"
	"codeberg.org/mutker/formctl/internal/pose"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

const maxLineSize = 1 << 20

// Precomputed angles outside [MinAngle, MaxAngle] are not samples.
const (
	MinAngle = 0.0
	MaxAngle = 180.0
)

type rawFrame struct {
	Keypoints map[int][]float64 `json:"keypoints"`
	Angle     *float64           `json:"angle"`
}

type line struct {
	data []byte
	err  error
}

// Reader is a Source over a line-oriented stream. Lines are read on a
// separate goroutine so Next can honour cancellation.
type Reader struct {
	closer io.Closer
	lines  chan line
	done   chan struct{}
	once   sync.Once
	index  int
	ended  error
}

// Open returns a Reader for the file at path, or for standard input when
// path is Stdin.
func Open(path string) (*Reader, error) {
	if path == Stdin || path == "" {
		return NewReader(os.Stdin), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New().Wrap(ErrOpenFailed, err)
	}

	r := NewReader(f)
	r.closer = f

	return r, nil
}

// NewReader returns a Reader over r. The caller keeps ownership of r.
func NewReader(r io.Reader) *Reader {
	rd := &Reader{
		lines: make(chan line),
		done:  make(chan struct{}),
	}

	go rd.scan(r)

	return rd
}

func (r *Reader) scan(src io.Reader) {
	defer close(r.lines)

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		data := append([]byte(nil), scanner.Bytes()...)
		select {
		case r.lines <- line{data: data}:
		case <-r.done:
			return
		}
	}

	if err := scanner.Err(); err != nil {
		select {
		case r.lines <- line{err: errors.New().Wrap(ErrReadFailed, err)}:
		case <-r.done:
		}
	}
}

// Next implements Source.
func (r *Reader) Next(ctx context.Context) (Frame, error) {
	if r.ended != nil {
		return Frame{}, r.ended
	}

	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-r.done:
		return Frame{}, errors.New().New(ErrSourceClosed)
	case l, ok := <-r.lines:
		if !ok {
			r.ended = io.EOF
			return Frame{}, io.EOF
		}
		if l.err != nil {
			r.ended = l.err
			return Frame{}, l.err
		}

		frame := Decode(l.data)
		frame.Index = r.index
		r.index++

		return frame, nil
	}
}

// Close stops the reader goroutine and closes the underlying file, if the
// Reader opened it. Close is idempotent.
func (r *Reader) Close() error {
	var err error
	r.once.Do(func() {
		close(r.done)
		if r.closer != nil {
			if cerr := r.closer.Close(); cerr != nil {
				err = errors.New().Wrap(ErrCloseFailed, cerr)
			}
		}
	})

	return err
}

// Decode parses one JSON line into a Frame. Invalid input yields a frame
// without a sample.
func Decode(data []byte) Frame {
	var raw rawFrame
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Debug().Err(err).Msg("Skipping malformed frame")
		return Frame{}
	}

	var frame Frame
	if raw.Angle != nil {
		if validAngle(*raw.Angle) {
			frame.Angle = raw.Angle
		} else {
			logger.Debug().Float64("angle", *raw.Angle).Msg("Dropping out of range angle")
		}
	}

	for role, xy := range raw.Keypoints {
		// null and short or long coordinate lists mean the joint was not detected
		if len(xy) != 2 {
			continue
		}
		if frame.Keypoints == nil {
			frame.Keypoints = make(pose.Keypoints, len(raw.Keypoints))
		}
		frame.Keypoints[role] = pose.Point{X: xy[0], Y: xy[1]}
	}

	return frame
}

func validAngle(deg float64) bool {
	return deg >= MinAngle && deg <= MaxAngle
}
