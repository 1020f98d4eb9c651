package metadata

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	tagSubIFDs = 0x014a

	tiffShort = 3
	tiffLong  = 4
	tiffIFD   = 13

	// bounds on what a damaged file can make us read
	maxTIFFDirectories = 64
	maxTIFFEntries     = 1024
	maxSubIFDs         = 16
)

var errNoTIFFSize = errors.New("no image dimensions in TIFF directories")

type tiffDirectory struct {
	width, height uint32
	subIFDs       []uint32
	next          uint32
}

// largestTIFFImage returns the largest image described by any directory of a
// TIFF based raw file. IFD0 of CR2, NEF and DNG files is usually a small
// preview; the sensor image sits in a later IFD or a SubIFD.
func largestTIFFImage(r io.ReaderAt) (uint32, uint32, error) {
	var header [8]byte
	if _, err := r.ReadAt(header[:], 0); err != nil {
		return 0, 0, fmt.Errorf("failed to read TIFF header: %w", err)
	}

	var order binary.ByteOrder
	switch string(header[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0, 0, fmt.Errorf("not a TIFF file")
	}
	if order.Uint16(header[2:4]) != 42 {
		return 0, 0, fmt.Errorf("not a TIFF file")
	}

	var bestW, bestH uint32
	queue := []uint32{order.Uint32(header[4:8])}
	visited := make(map[uint32]bool)

	for len(queue) > 0 && len(visited) < maxTIFFDirectories {
		offset := queue[0]
		queue = queue[1:]
		if offset == 0 || visited[offset] {
			continue
		}
		visited[offset] = true

		dir, err := readTIFFDirectory(r, order, offset)
		if err != nil {
			if len(visited) == 1 {
				return 0, 0, err
			}
			continue
		}

		if uint64(dir.width)*uint64(dir.height) > uint64(bestW)*uint64(bestH) {
			bestW, bestH = dir.width, dir.height
		}
		queue = append(queue, dir.subIFDs...)
		queue = append(queue, dir.next)
	}

	if bestW == 0 || bestH == 0 {
		return 0, 0, errNoTIFFSize
	}
	return bestW, bestH, nil
}

func readTIFFDirectory(r io.ReaderAt, order binary.ByteOrder, offset uint32) (tiffDirectory, error) {
	var dir tiffDirectory

	var countBuf [2]byte
	if _, err := r.ReadAt(countBuf[:], int64(offset)); err != nil {
		return dir, fmt.Errorf("failed to read IFD at %d: %w", offset, err)
	}
	count := int(order.Uint16(countBuf[:]))
	if count == 0 || count > maxTIFFEntries {
		return dir, fmt.Errorf("invalid IFD at %d: %d entries", offset, count)
	}

	entries := make([]byte, count*12+4)
	if _, err := r.ReadAt(entries, int64(offset)+2); err != nil {
		return dir, fmt.Errorf("failed to read IFD at %d: %w", offset, err)
	}

	for i := 0; i < count; i++ {
		e := entries[i*12 : i*12+12]
		tag := order.Uint16(e[0:2])
		typ := order.Uint16(e[2:4])
		n := order.Uint32(e[4:8])
		value := e[8:12]

		switch tag {
		case tagImageWidth:
			dir.width = tiffScalar(order, typ, value)
		case tagImageLength:
			dir.height = tiffScalar(order, typ, value)
		case tagSubIFDs:
			if typ != tiffLong && typ != tiffIFD {
				continue
			}
			dir.subIFDs = readTIFFOffsets(r, order, n, value)
		}
	}

	dir.next = order.Uint32(entries[count*12:])
	return dir, nil
}

func tiffScalar(order binary.ByteOrder, typ uint16, value []byte) uint32 {
	switch typ {
	case tiffShort:
		return uint32(order.Uint16(value))
	case tiffLong:
		return order.Uint32(value)
	default:
		return 0
	}
}

// readTIFFOffsets reads n IFD offsets stored inline or at the offset held in
// value.
func readTIFFOffsets(r io.ReaderAt, order binary.ByteOrder, n uint32, value []byte) []uint32 {
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []uint32{order.Uint32(value)}
	}
	n = min(n, maxSubIFDs)

	buf := make([]byte, 4*n)
	if _, err := r.ReadAt(buf, int64(order.Uint32(value))); err != nil {
		return nil
	}
	offsets := make([]uint32, n)
	for i := range offsets {
		offsets[i] = order.Uint32(buf[i*4:])
	}
	return offsets
}

// tiffDimensions measures a raw file from its TIFF directories.
func tiffDimensions(r io.ReadSeeker) (uint32, uint32, error) {
	if ra, ok := r.(io.ReaderAt); ok {
		return largestTIFFImage(ra)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, 0, err
	}
	return largestTIFFImage(bytes.NewReader(data))
}
