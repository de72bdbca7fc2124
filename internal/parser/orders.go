package parser

import (
	"github.com/dtg01100/tn5250r-go/internal/codec"
	"github.com/dtg01100/tn5250r-go/internal/display"
	"github.com/dtg01100/tn5250r-go/internal/protoerr"
)

// Order codes within a Write-To-Display/Erase-Write order stream.
const (
	OrderSBA              byte = 0x01
	OrderRA               byte = 0x02
	OrderEA               byte = 0x03
	OrderTransparentData  byte = 0x04
	OrderMC               byte = 0x05
	OrderIC               byte = 0x08
	OrderSOF              byte = 0x11
	OrderStartOfHeader    byte = 0x1D
)

// orderResult accumulates the side effects of walking one order stream:
// newly discovered field attribute addresses (for fields.Scan), any
// pending insert-cursor target, and Transparent-Data payloads.
type orderResult struct {
	attrAddrs  []int
	ffws       []byte
	fcws       []byte
	insertAt   int
	hasInsert  bool
	transparent [][]byte
}

// walkOrders interprets an order stream starting immediately after a
// command byte (Write-To-Display, Erase/Write, ...), writing into buf
// as it goes and returning what fields.Scan and the session need.
func walkOrders(buf *display.Buffer, table *codec.Table, stream []byte) (orderResult, error) {
	var res orderResult
	rows, cols := buf.Dimensions()
	bufLen := rows * cols
	pos := 0
	cur := buf.Address(0, 0)

	for pos < len(stream) {
		op := stream[pos]
		pos++

		switch op {
		case OrderSBA:
			if pos+2 > len(stream) {
				return res, protoerr.New(protoerr.TruncatedRecord, "parser.walkOrders(SBA)", nil)
			}
			addr, err := display.DecodeAddress(stream[pos], stream[pos+1])
			if err != nil {
				return res, err
			}
			cur = addr
			pos += 2

		case OrderRA:
			if pos+3 > len(stream) {
				return res, protoerr.New(protoerr.TruncatedRecord, "parser.walkOrders(RA)", nil)
			}
			to, err := display.DecodeAddress(stream[pos], stream[pos+1])
			if err != nil {
				return res, err
			}
			ch := table.Decode(stream[pos+2 : pos+3])[0]
			pos += 3
			for {
				if err := buf.SetCell(cur, ch, 0); err != nil {
					return res, err
				}
				if cur == to {
					break
				}
				cur = (cur + 1) % bufLen
			}
			cur = (cur + 1) % bufLen

		case OrderEA:
			if pos+2 > len(stream) {
				return res, protoerr.New(protoerr.TruncatedRecord, "parser.walkOrders(EA)", nil)
			}
			to, err := display.DecodeAddress(stream[pos], stream[pos+1])
			if err != nil {
				return res, err
			}
			pos += 2
			if err := buf.EraseToAddress(cur, to); err != nil {
				return res, err
			}
			cur = (to + 1) % bufLen

		case OrderTransparentData:
			if pos+1 > len(stream) {
				return res, protoerr.New(protoerr.TruncatedRecord, "parser.walkOrders(TD)", nil)
			}
			n := int(stream[pos])
			pos++
			if pos+n > len(stream) {
				return res, protoerr.New(protoerr.TruncatedRecord, "parser.walkOrders(TD)", nil)
			}
			raw := append([]byte(nil), stream[pos:pos+n]...)
			res.transparent = append(res.transparent, raw)
			pos += n

		case OrderMC:
			if pos+2 > len(stream) {
				return res, protoerr.New(protoerr.TruncatedRecord, "parser.walkOrders(MC)", nil)
			}
			addr, err := display.DecodeAddress(stream[pos], stream[pos+1])
			if err != nil {
				return res, err
			}
			pos += 2
			row, col := buf.RowCol(addr)
			buf.SetCursor(row, col)

		case OrderIC:
			if pos+2 > len(stream) {
				return res, protoerr.New(protoerr.TruncatedRecord, "parser.walkOrders(IC)", nil)
			}
			addr, err := display.DecodeAddress(stream[pos], stream[pos+1])
			if err != nil {
				return res, err
			}
			pos += 2
			res.insertAt = addr
			res.hasInsert = true

		case OrderSOF:
			if pos+2 > len(stream) {
				return res, protoerr.New(protoerr.TruncatedRecord, "parser.walkOrders(SOF)", nil)
			}
			ffw := stream[pos]
			fcw := stream[pos+1]
			pos += 2
			if err := buf.SetAttrCell(cur, display.AttrByte(ffw)); err != nil {
				return res, err
			}
			res.attrAddrs = append(res.attrAddrs, cur)
			res.ffws = append(res.ffws, ffw)
			res.fcws = append(res.fcws, fcw)
			cur = (cur + 1) % bufLen

		case OrderStartOfHeader:
			if pos+1 > len(stream) {
				return res, protoerr.New(protoerr.TruncatedRecord, "parser.walkOrders(SOH)", nil)
			}
			n := int(stream[pos])
			pos++
			if pos+n > len(stream) {
				return res, protoerr.New(protoerr.TruncatedRecord, "parser.walkOrders(SOH)", nil)
			}
			pos += n // header info carried but not interpreted

		default:
			// A plain data byte: decode through the EBCDIC table and
			// place it at the current buffer address.
			ch := table.Decode(stream[pos-1 : pos])[0]
			if err := buf.SetCell(cur, ch, 0); err != nil {
				return res, err
			}
			cur = (cur + 1) % bufLen
		}
	}

	if res.hasInsert {
		row, col := buf.RowCol(res.insertAt)
		buf.SetCursor(row, col)
	}

	return res, nil
}
