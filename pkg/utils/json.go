package utils

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxFrameLen bounds the size of a single decoded frame.
const MaxFrameLen = 16 * 1024 * 1024

var ErrFrameTooLarge = errors.New("frame exceeds maximum length")

// FramedEncoder writes values as JSON documents prefixed with their
// little-endian uint32 length.
type FramedEncoder struct {
	writer io.Writer
}

func NewFramedEncoder(writer io.Writer) *FramedEncoder {
	return &FramedEncoder{writer}
}

func (e *FramedEncoder) Encode(data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if len(b) > MaxFrameLen {
		return fmt.Errorf("%w: %v bytes", ErrFrameTooLarge, len(b))
	}

	if err := binary.Write(e.writer, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}

	_, err = e.writer.Write(b)

	return err
}

type FramedDecoder struct {
	reader io.Reader
}

func NewFramedDecoder(reader io.Reader) *FramedDecoder {
	return &FramedDecoder{reader}
}

// Decode reads the next frame into data. It returns io.EOF once the stream
// ends cleanly between frames.
func (d *FramedDecoder) Decode(data any) error {
	var bLen uint32
	if err := binary.Read(d.reader, binary.LittleEndian, &bLen); err != nil {
		return err
	}

	if bLen > MaxFrameLen {
		return fmt.Errorf("%w: %v bytes", ErrFrameTooLarge, bLen)
	}

	b := make([]byte, bLen)
	if _, err := io.ReadFull(d.reader, b); err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}

		return err
	}

	return json.Unmarshal(b, data)
}
