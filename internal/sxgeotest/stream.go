package sxgeotest

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
)

// fileStream - big-endian write cursor used to lay a fixture out, on disk or in memory
type fileStream struct {
	w        io.Writer
	closer   io.Closer
	int32Buf []byte
	int16Buf []byte
}

func newFileStream(filename string) (*fileStream, error) {
	dir, err := filepath.Abs(filepath.Dir(filename))
	if err != nil {
		return nil, err
	}
	if _, err = os.Stat(dir); os.IsNotExist(err) {
		if err = os.MkdirAll(dir, 0744); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	stream := newWriterStream(file)
	stream.closer = file
	return stream, nil
}

func newWriterStream(w io.Writer) *fileStream {
	return &fileStream{w: w, int32Buf: make([]byte, 4), int16Buf: make([]byte, 2)}
}

func (stream *fileStream) writeBuf(buf []byte) error {
	_, err := stream.w.Write(buf)
	return err
}

func (stream *fileStream) writeByte(val byte) error {
	return stream.writeBuf([]byte{val})
}

func (stream *fileStream) writeUint16(val uint16) error {
	binary.BigEndian.PutUint16(stream.int16Buf, val)
	return stream.writeBuf(stream.int16Buf)
}

func (stream *fileStream) writeUint32(val uint32) error {
	binary.BigEndian.PutUint32(stream.int32Buf, val)
	return stream.writeBuf(stream.int32Buf)
}

func (stream *fileStream) close() error {
	if stream.closer == nil {
		return nil
	}
	return stream.closer.Close()
}
