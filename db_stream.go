package sxgeo

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// dbStream - read-only cursor over the database file
type dbStream struct {
	file *os.File
	size int64
}

func newDBStream(filename string) (*dbStream, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	return &dbStream{file: file, size: info.Size()}, nil
}

// readCount reads exactly count bytes from the current position
func (stream *dbStream) readCount(count int) ([]byte, error) {
	buf := make([]byte, count)
	n, err := io.ReadFull(stream.file, buf)
	if n != count {
		if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return buf[:n], fmt.Errorf("%w: tried to read %d bytes but got %d", ErrShortRead, count, n)
		}
		return buf[:n], err
	}
	return buf, nil
}

// readUpTo reads at most count bytes, stopping early at end of file
func (stream *dbStream) readUpTo(count int) ([]byte, error) {
	buf := make([]byte, count)
	n, err := io.ReadFull(stream.file, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return buf[:n], nil
}

func (stream *dbStream) readUint32s(count int) ([]uint32, error) {
	buf, err := stream.readCount(count * 4)
	if err != nil {
		return nil, err
	}
	result := make([]uint32, count)
	for i := range result {
		result[i] = binary.BigEndian.Uint32(buf[i*4 : i*4+4])
	}
	return result, nil
}

func (stream *dbStream) getCurrentPos() (int64, error) {
	return stream.file.Seek(0, io.SeekCurrent)
}

func (stream *dbStream) seekPos(pos int64, whence int) error {
	_, err := stream.file.Seek(pos, whence)
	return err
}

func (stream *dbStream) getLength() int64 {
	return stream.size
}

func (stream *dbStream) close() error {
	return stream.file.Close()
}
