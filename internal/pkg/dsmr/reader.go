package dsmr

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"iter"

	"go.uber.org/zap"

	"github.com/anicoll/mqtt4dsmr/internal/pkg/model"
)

const maxTelegramSize = 64 * 1024

var ErrTelegramTooLarge = errors.New("telegram exceeds maximum size")

// Reader splits a P1 byte stream into telegrams.
type Reader struct {
	r          *bufio.Reader
	requireCRC bool
	logger     *zap.Logger
	// set while the rest of an oversized line is being dropped
	oversized bool
}

func NewReader(r io.Reader, requireCRC bool) *Reader {
	return &Reader{
		r:          bufio.NewReader(r),
		requireCRC: requireCRC,
		logger:     zap.L(),
	}
}

// Next blocks until the next complete telegram has been read. Bytes before the
// first header are discarded.
func (r *Reader) Next() (*model.Telegram, error) {
	var buf bytes.Buffer
	for {
		line, err := r.readLine()
		if errors.Is(err, ErrTelegramTooLarge) {
			return nil, err
		}
		if len(line) > 0 {
			if line[0] == '/' {
				buf.Reset()
			}
			if buf.Len() > 0 || line[0] == '/' {
				buf.Write(line)
			}
			if buf.Len() > maxTelegramSize {
				buf.Reset()
				return nil, ErrTelegramTooLarge
			}
			if line[0] == '!' && buf.Len() > 0 {
				return Parse(buf.Bytes(), r.requireCRC)
			}
		}
		if err != nil {
			return nil, err
		}
	}
}

// readLine returns the next line. Lines longer than maxTelegramSize are reported
// once with ErrTelegramTooLarge and their remainder is discarded.
func (r *Reader) readLine() ([]byte, error) {
	var line []byte
	for {
		frag, err := r.r.ReadSlice('\n')
		more := errors.Is(err, bufio.ErrBufferFull)
		switch {
		case r.oversized:
			r.oversized = more
		case len(line)+len(frag) > maxTelegramSize:
			r.oversized = more
			return nil, ErrTelegramTooLarge
		default:
			line = append(line, frag...)
		}
		if !more {
			return line, err
		}
	}
}

// Telegrams returns the stream as a sequence. Telegrams that fail to parse or
// carry a bad checksum are logged and skipped; read errors end the sequence.
func (r *Reader) Telegrams() iter.Seq2[*model.Telegram, error] {
	return func(yield func(*model.Telegram, error) bool) {
		for {
			telegram, err := r.Next()
			switch {
			case errors.Is(err, ErrChecksum), errors.Is(err, ErrMalformed), errors.Is(err, ErrTelegramTooLarge):
				r.logger.Warn("skipping telegram", zap.Error(err))
				continue
			case err != nil:
				yield(nil, err)
				return
			}
			if !yield(telegram, nil) {
				return
			}
		}
	}
}
