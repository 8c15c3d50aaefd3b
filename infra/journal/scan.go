package journal

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"matchbook/domain/orderbook"
)

// Scan replays every journaled trade in write order and returns the highest
// trade sequence seen. A torn frame at the tail of the newest segment is
// tolerated (crash mid-append); a CRC mismatch is not.
func Scan(dir string, fn func(orderbook.Trade) error) (uint64, error) {
	names, err := segmentFiles(dir)
	if err != nil {
		return 0, err
	}

	var maxSeq uint64
	for i, name := range names {
		last := i == len(names)-1
		seq, err := scanSegment(name, last, fn)
		if err != nil {
			return maxSeq, fmt.Errorf("journal segment %s: %w", name, err)
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq, nil
}

func scanSegment(path string, tolerateTorn bool, fn func(orderbook.Trade) error) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var maxSeq uint64
	header := make([]byte, 8)
	for {
		if _, err := io.ReadFull(f, header); err != nil {
			if err == io.EOF {
				return maxSeq, nil
			}
			if err == io.ErrUnexpectedEOF && tolerateTorn {
				return maxSeq, nil
			}
			return maxSeq, err
		}

		bodyLen := binary.LittleEndian.Uint32(header[:4])
		wantCRC := binary.LittleEndian.Uint32(header[4:8])

		body := make([]byte, bodyLen)
		if _, err := io.ReadFull(f, body); err != nil {
			if (err == io.EOF || err == io.ErrUnexpectedEOF) && tolerateTorn {
				return maxSeq, nil
			}
			return maxSeq, err
		}
		if crc32.ChecksumIEEE(body) != wantCRC {
			return maxSeq, ErrCorruptRecord
		}

		t, err := DecodeTrade(body)
		if err != nil {
			return maxSeq, err
		}
		if t.Seq > maxSeq {
			maxSeq = t.Seq
		}
		if err := fn(t); err != nil {
			return maxSeq, err
		}
	}
}
