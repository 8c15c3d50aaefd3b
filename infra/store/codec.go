package store

import (
	"fmt"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/encoding/protowire"

	"matchbook/domain/orderbook"
)

// Order records are protobuf wire format, framed by the storage engine.
// Field numbers are part of the on-disk format and must not be renumbered.
const (
	fieldID        = 1
	fieldOwner     = 2
	fieldSide      = 3
	fieldPrice     = 4
	fieldOriginal  = 5
	fieldRemaining = 6
	fieldSeq       = 7
	fieldStatus    = 8
)

func encodeOrder(o *orderbook.Order) []byte {
	b := protowire.AppendTag(nil, fieldID, protowire.VarintType)
	b = protowire.AppendVarint(b, o.ID)
	b = protowire.AppendTag(b, fieldOwner, protowire.BytesType)
	b = protowire.AppendString(b, o.Owner)
	b = protowire.AppendTag(b, fieldSide, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(o.Side))
	b = protowire.AppendTag(b, fieldPrice, protowire.BytesType)
	b = protowire.AppendString(b, o.Price.String())
	b = protowire.AppendTag(b, fieldOriginal, protowire.BytesType)
	b = protowire.AppendString(b, o.Original.String())
	b = protowire.AppendTag(b, fieldRemaining, protowire.BytesType)
	b = protowire.AppendString(b, o.Remaining.String())
	b = protowire.AppendTag(b, fieldSeq, protowire.VarintType)
	b = protowire.AppendVarint(b, o.Seq)
	b = protowire.AppendTag(b, fieldStatus, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(o.Status))
	return b
}

func decodeOrder(data []byte) (*orderbook.Order, error) {
	o := &orderbook.Order{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("order record: bad tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("order record: bad varint: %w", protowire.ParseError(n))
			}
			data = data[n:]
			switch num {
			case fieldID:
				o.ID = v
			case fieldSide:
				o.Side = orderbook.Side(v)
			case fieldSeq:
				o.Seq = v
			case fieldStatus:
				o.Status = orderbook.Status(v)
			}
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("order record: bad bytes: %w", protowire.ParseError(n))
			}
			data = data[n:]
			switch num {
			case fieldOwner:
				o.Owner = string(v)
			case fieldPrice, fieldOriginal, fieldRemaining:
				d, err := decimal.NewFromString(string(v))
				if err != nil {
					return nil, fmt.Errorf("order record field %d: %w", num, err)
				}
				switch num {
				case fieldPrice:
					o.Price = d
				case fieldOriginal:
					o.Original = d
				case fieldRemaining:
					o.Remaining = d
				}
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("order record: bad field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return o, nil
}
