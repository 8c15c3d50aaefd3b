package journal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/encoding/protowire"

	"matchbook/domain/orderbook"
)

// ErrCorruptRecord is returned when a frame fails its CRC or cannot be
// decoded. Scanning stops at the first corrupt frame of a segment.
var ErrCorruptRecord = errors.New("corrupt journal record")

// Trade bodies are protobuf wire format. Field numbers are part of the
// on-disk format and must not be renumbered.
const (
	fieldSeq   = 1
	fieldBuy   = 2
	fieldSell  = 3
	fieldPrice = 4
	fieldQty   = 5
	fieldTime  = 6
)

// EncodeTrade serializes a trade body without the frame header.
func EncodeTrade(t orderbook.Trade) []byte {
	b := protowire.AppendTag(nil, fieldSeq, protowire.VarintType)
	b = protowire.AppendVarint(b, t.Seq)
	b = protowire.AppendTag(b, fieldBuy, protowire.VarintType)
	b = protowire.AppendVarint(b, t.BuyOrderID)
	b = protowire.AppendTag(b, fieldSell, protowire.VarintType)
	b = protowire.AppendVarint(b, t.SellOrderID)
	b = protowire.AppendTag(b, fieldPrice, protowire.BytesType)
	b = protowire.AppendString(b, t.Price.String())
	b = protowire.AppendTag(b, fieldQty, protowire.BytesType)
	b = protowire.AppendString(b, t.Quantity.String())
	b = protowire.AppendTag(b, fieldTime, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(t.Time))
	return b
}

// DecodeTrade parses a trade body.
func DecodeTrade(data []byte) (orderbook.Trade, error) {
	var t orderbook.Trade
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return t, fmt.Errorf("%w: bad tag", ErrCorruptRecord)
		}
		data = data[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return t, fmt.Errorf("%w: bad varint", ErrCorruptRecord)
			}
			data = data[n:]
			switch num {
			case fieldSeq:
				t.Seq = v
			case fieldBuy:
				t.BuyOrderID = v
			case fieldSell:
				t.SellOrderID = v
			case fieldTime:
				t.Time = int64(v)
			}
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return t, fmt.Errorf("%w: bad bytes", ErrCorruptRecord)
			}
			data = data[n:]
			d, err := decimal.NewFromString(string(v))
			if err != nil {
				return t, fmt.Errorf("%w: field %d: %v", ErrCorruptRecord, num, err)
			}
			switch num {
			case fieldPrice:
				t.Price = d
			case fieldQty:
				t.Quantity = d
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return t, fmt.Errorf("%w: bad field %d", ErrCorruptRecord, num)
			}
			data = data[n:]
		}
	}
	return t, nil
}

// frame wraps a body as [len:4 LE][crc:4 LE][body].
func frame(body []byte) []byte {
	buf := make([]byte, 8+len(body))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(body)))
	binary.LittleEndian.PutUint32(buf[4:8], crc32.ChecksumIEEE(body))
	copy(buf[8:], body)
	return buf
}
