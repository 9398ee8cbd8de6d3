package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/radiotree/radiotree-go/pkg/log"
)

const (
	// LengthPrefixSize is the size of the big-endian frame length.
	LengthPrefixSize = 4

	// DefaultMaxMessageSize bounds a single message (1 MB). A snapshot of a
	// fully populated device tree fits well below it.
	DefaultMaxMessageSize = 1 << 20

	// MaxLogFrameDataSize caps the payload bytes copied into frame events.
	MaxLogFrameDataSize = 4096
)

var (
	ErrMessageTooLarge = errors.New("message too large")
	ErrMessageEmpty    = errors.New("message is empty")
	ErrFrameTruncated  = errors.New("frame truncated")
)

// FrameSize returns the on-wire size of a payload including its prefix.
func FrameSize(payloadSize int) int {
	return LengthPrefixSize + payloadSize
}

func checkLength(n int, max uint32) error {
	switch {
	case n == 0:
		return ErrMessageEmpty
	case uint64(n) > uint64(max):
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, n, max)
	}
	return nil
}

// frameLog records frames as transport events when a logger is set.
type frameLog struct {
	logger log.Logger
	connID string
}

func (l *frameLog) record(data []byte, dir log.Direction) {
	if l.logger == nil {
		return
	}
	ev := &log.FrameEvent{Size: FrameSize(len(data)), Data: data}
	if len(data) > MaxLogFrameDataSize {
		ev.Data, ev.Truncated = data[:MaxLogFrameDataSize], true
	}
	l.logger.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: l.connID,
		Direction: dir,
		Layer:     log.LayerTransport,
		Category:  log.CategoryMessage,
		Frame:     ev,
	})
}

// FrameWriter writes length-prefixed frames. WriteFrame is safe for
// concurrent use; each frame goes out in a single Write.
type FrameWriter struct {
	mu  sync.Mutex
	w   io.Writer
	max uint32
	log frameLog
}

func NewFrameWriter(w io.Writer) *FrameWriter {
	return NewFrameWriterWithMaxSize(w, DefaultMaxMessageSize)
}

func NewFrameWriterWithMaxSize(w io.Writer, maxSize uint32) *FrameWriter {
	return &FrameWriter{w: w, max: maxSize}
}

// SetLogger enables frame events tagged with connID. A nil logger disables them.
func (fw *FrameWriter) SetLogger(logger log.Logger, connID string) {
	fw.log = frameLog{logger: logger, connID: connID}
}

func (fw *FrameWriter) WriteFrame(data []byte) error {
	if err := checkLength(len(data), fw.max); err != nil {
		return err
	}
	frame := make([]byte, FrameSize(len(data)))
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[LengthPrefixSize:], data)

	fw.mu.Lock()
	defer fw.mu.Unlock()
	if _, err := fw.w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	fw.log.record(data, log.DirectionOut)
	return nil
}

// FrameReader reads length-prefixed frames. It is not safe for concurrent use.
type FrameReader struct {
	r      io.Reader
	max    uint32
	prefix [LengthPrefixSize]byte
	log    frameLog
}

func NewFrameReader(r io.Reader) *FrameReader {
	return NewFrameReaderWithMaxSize(r, DefaultMaxMessageSize)
}

func NewFrameReaderWithMaxSize(r io.Reader, maxSize uint32) *FrameReader {
	return &FrameReader{r: r, max: maxSize}
}

// SetLogger enables frame events tagged with connID. A nil logger disables them.
func (fr *FrameReader) SetLogger(logger log.Logger, connID string) {
	fr.log = frameLog{logger: logger, connID: connID}
}

// ReadFrame returns the next payload. A clean close between frames yields
// io.EOF; a close inside a frame yields ErrFrameTruncated.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	if err := fr.fill(fr.prefix[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(fr.prefix[:])
	if err := checkLength(int(n), fr.max); err != nil {
		return nil, err
	}
	payload := make([]byte, n)
	if err := fr.fill(payload); err != nil {
		if err == io.EOF {
			err = ErrFrameTruncated
		}
		return nil, err
	}
	fr.log.record(payload, log.DirectionIn)
	return payload, nil
}

func (fr *FrameReader) fill(buf []byte) error {
	_, err := io.ReadFull(fr.r, buf)
	switch {
	case err == nil, err == io.EOF:
		return err
	case errors.Is(err, io.ErrUnexpectedEOF):
		return ErrFrameTruncated
	default:
		return fmt.Errorf("read frame: %w", err)
	}
}

// Framer pairs a reader and a writer over one connection.
type Framer struct {
	*FrameReader
	*FrameWriter
}

func NewFramer(rw io.ReadWriter) *Framer {
	return NewFramerWithMaxSize(rw, DefaultMaxMessageSize)
}

func NewFramerWithMaxSize(rw io.ReadWriter, maxSize uint32) *Framer {
	return &Framer{
		FrameReader: NewFrameReaderWithMaxSize(rw, maxSize),
		FrameWriter: NewFrameWriterWithMaxSize(rw, maxSize),
	}
}

// SetLogger configures both directions.
func (f *Framer) SetLogger(logger log.Logger, connID string) {
	f.FrameReader.SetLogger(logger, connID)
	f.FrameWriter.SetLogger(logger, connID)
}
