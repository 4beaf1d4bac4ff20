package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"example.com/trcgate/internal/can"
	"example.com/trcgate/internal/common"
)

// DefaultHeaderLines is the length of the PCAN-View file header.
const DefaultHeaderLines = 20

const maxLineBytes = 1 << 20

type Options struct {
	// HeaderLines lines at the top of the file are never parsed.
	HeaderLines int
	Metrics     *common.Metrics
	// Name identifies the input in log messages.
	Name string
}

// Reader yields frames from a trace one line at a time. Frames keep
// TimeMs == Offset; use ReconstructTime on the collected frames.
type Reader struct {
	br   *bufio.Reader
	opts Options
	line int
}

func NewReader(r io.Reader, opts Options) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 64*1024), opts: opts}
}

// Line returns the 1-based number of the last line read.
func (r *Reader) Line() int {
	return r.line
}

// Next returns the next frame, or io.EOF after the last one. Lines that are
// not frames are skipped; malformed ones, including lines longer than
// maxLineBytes, are logged with their line number.
func (r *Reader) Next() (can.Frame, error) {
	for {
		raw, size, tooLong, err := r.readLine()
		if errors.Is(err, io.EOF) {
			return can.Frame{}, io.EOF
		}
		if err != nil {
			return can.Frame{}, fmt.Errorf("%s line %d: %w", r.name(), r.line+1, err)
		}
		r.line++
		if tooLong {
			common.Logf("%s line %d: %v: longer than %d bytes", r.name(), r.line, ErrMalformedLine, maxLineBytes)
			r.skip(size)
			continue
		}
		s := strings.TrimSpace(raw)
		if r.line <= r.opts.HeaderLines || s == "" || strings.HasPrefix(s, ";") || len(s) <= MinLineLength {
			r.skip(size)
			continue
		}
		f, err := ParseLine(s)
		if err != nil {
			common.Logf("%s line %d: %v", r.name(), r.line, err)
			r.skip(size)
			continue
		}
		if r.opts.Metrics != nil {
			r.opts.Metrics.AddFrame(size)
		}
		return f, nil
	}
}

// readLine returns one line without its terminator and the bytes it took
// up. Content past maxLineBytes is discarded and reported as tooLong.
func (r *Reader) readLine() (line string, size int64, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, more, err := r.br.ReadLine()
		if err != nil {
			return "", 0, false, err
		}
		size += int64(len(chunk))
		if !tooLong {
			if len(buf)+len(chunk) > maxLineBytes {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !more {
			return string(buf), size + 1, tooLong, nil
		}
	}
}

func (r *Reader) skip(size int64) {
	if r.opts.Metrics != nil {
		r.opts.Metrics.AddSkipped(size)
	}
}

func (r *Reader) name() string {
	if r.opts.Name != "" {
		return r.opts.Name
	}
	return "trace"
}

// Read collects every frame of r and reconstructs absolute time.
func Read(r io.Reader, opts Options) ([]can.Frame, error) {
	tr := NewReader(r, opts)
	var frames []can.Frame
	for {
		f, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	ReconstructTime(frames)
	return frames, nil
}

// ReadFile is Read on the file at path.
func ReadFile(path string, opts Options) ([]can.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace %s: %w", path, err)
	}
	defer f.Close()
	if opts.Name == "" {
		opts.Name = path
	}
	if opts.Metrics != nil {
		if info, err := f.Stat(); err == nil {
			opts.Metrics.AddTotalBytes(info.Size())
		}
	}
	return Read(f, opts)
}
