package handler

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/CSCE331-Fall2025-900-911/project3-gang-61/internal/domain/order"
	"github.com/CSCE331-Fall2025-900-911/project3-gang-61/internal/domain/product"
)

// presence describes how an optional scalar appeared in the body.
type presence uint8

const (
	absent presence = iota
	present
	malformed
)

// orderBody accumulates a POST /api/orders body before the checks run in
// their fixed order.
type orderBody struct {
	req order.PlaceOrderRequest

	total    presence
	member   presence
	employee presence
	// lineErr is the first problem found inside items.
	lineErr error
}

// decodePlaceOrder parses a cart submission. Ids, quantities, prices and the
// total are accepted as JSON numbers or numeric strings. Failures are
// reported as *order.ValidationError in this order: empty cart, total,
// member_id, employee_id, then the first malformed line.
func decodePlaceOrder(data []byte) (order.PlaceOrderRequest, error) {
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return order.PlaceOrderRequest{}, order.InvalidOrderError("body", "request body must be a JSON object")
	}

	var b orderBody
	if err := d.Obj(b.field); err != nil {
		var vErr *order.ValidationError
		if errors.As(err, &vErr) {
			return order.PlaceOrderRequest{}, vErr
		}
		return order.PlaceOrderRequest{}, order.InvalidOrderError("body", "malformed JSON body")
	}

	switch {
	case len(b.req.Lines) == 0:
		return b.req, order.EmptyCartError()
	case b.total != present:
		return b.req, order.InvalidTotalError()
	case b.member == absent:
		return b.req, order.MissingFieldError("member_id")
	case b.member == malformed:
		return b.req, order.InvalidTypeError("member_id", "integer")
	case b.employee == absent:
		return b.req, order.MissingFieldError("employee_id")
	case b.employee == malformed:
		return b.req, order.InvalidTypeError("employee_id", "integer")
	case b.lineErr != nil:
		return b.req, b.lineErr
	}
	return b.req, nil
}

func (b *orderBody) field(d *jx.Decoder, key string) error {
	switch key {
	case "items":
		if d.Next() != jx.Array {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			line, err := b.line(d, len(b.req.Lines))
			if err != nil {
				return err
			}
			b.req.Lines = append(b.req.Lines, line)
			return nil
		})
	case "total":
		v, p, err := readDecimal(d)
		if p == present {
			b.req.Total = &v
		}
		b.total = p
		return err
	case "timestamp":
		ts, err := readTimestamp(d)
		b.req.Timestamp = ts
		return err
	case "member_id", "memberId":
		v, p, err := readID(d)
		if p == present {
			b.req.MemberID = &v
		}
		b.member = p
		return err
	case "employee_id", "employeeId":
		v, p, err := readID(d)
		if p == present {
			b.req.EmployeeID = &v
		}
		b.employee = p
		return err
	default:
		return d.Skip()
	}
}

func (b *orderBody) fail(err error) {
	if b.lineErr == nil {
		b.lineErr = err
	}
}

func (b *orderBody) line(d *jx.Decoder, idx int) (order.CartLine, error) {
	var (
		line      order.CartLine
		productID = absent
	)
	if d.Next() != jx.Object {
		b.fail(order.InvalidOrderError("items", fmt.Sprintf("items[%d] must be an object", idx)))
		return line, d.Skip()
	}

	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "product_id", "productId":
			v, p, err := readID(d)
			line.ProductID, productID = v, p
			return err
		case "product_name", "productName":
			if d.Next() != jx.String {
				return d.Skip()
			}
			s, err := d.Str()
			line.ProductName = s
			return err
		case "quantity":
			v, p, err := readInt(d)
			switch p {
			case present:
				if v > order.MaxLineQuantity {
					field := fmt.Sprintf("items[%d].quantity", idx)
					b.fail(order.InvalidOrderError(field, fmt.Sprintf("%s must be at most %d", field, order.MaxLineQuantity)))
					break
				}
				line.Quantity = int(v)
			case malformed:
				b.fail(order.InvalidTypeError(fmt.Sprintf("items[%d].quantity", idx), "integer"))
			}
			return err
		case "price":
			v, p, err := readDecimal(d)
			switch {
			case p == malformed:
				b.fail(order.InvalidOrderError("price", fmt.Sprintf("items[%d].price must be a valid number", idx)))
			case p == present && !priceInRange(v):
				b.fail(order.InvalidOrderError("price", fmt.Sprintf("items[%d].price is out of range", idx)))
			case p == present:
				line.Price = v
			}
			return err
		case "modifications":
			return b.modifications(d, idx, &line.Modifications)
		default:
			return d.Skip()
		}
	})

	switch productID {
	case absent:
		b.fail(order.MissingFieldError(fmt.Sprintf("items[%d].product_id", idx)))
	case malformed:
		b.fail(order.InvalidTypeError(fmt.Sprintf("items[%d].product_id", idx), "integer"))
	}
	return line, err
}

func (b *orderBody) modifications(d *jx.Decoder, idx int, m *order.Modifications) error {
	if d.Next() != jx.Object {
		return d.Skip()
	}
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "iceLevel", "ice_level":
			s, err := readString(d)
			if err != nil {
				return err
			}
			lvl, vErr := order.ParseIceLevel(s)
			if vErr != nil {
				b.fail(vErr)
			}
			m.IceLevel = lvl
			return nil
		case "sugarLevel", "sugar_level":
			s, err := readString(d)
			if err != nil {
				return err
			}
			lvl, vErr := order.ParseSugarLevel(s)
			if vErr != nil {
				b.fail(vErr)
			}
			m.SugarLevel = lvl
			return nil
		case "addOns", "add_ons":
			if d.Next() != jx.Array {
				return d.Skip()
			}
			return d.Arr(func(d *jx.Decoder) error {
				a, err := b.addOn(d, idx, len(m.AddOns))
				if err != nil {
					return err
				}
				m.AddOns = append(m.AddOns, a)
				return nil
			})
		default:
			return d.Skip()
		}
	})
}

func (b *orderBody) addOn(d *jx.Decoder, line, idx int) (order.AddOn, error) {
	var (
		a         order.AddOn
		productID = absent
		field     = fmt.Sprintf("items[%d].modifications.addOns[%d]", line, idx)
	)
	if d.Next() != jx.Object {
		b.fail(order.InvalidOrderError("addOns", field+" must be an object"))
		return a, d.Skip()
	}

	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "product_id", "productId":
			v, p, err := readID(d)
			a.ProductID, productID = v, p
			return err
		case "price":
			v, p, err := readDecimal(d)
			switch {
			case p == malformed:
				b.fail(order.InvalidOrderError("price", field+".price must be a valid number"))
			case p == present && !priceInRange(v):
				b.fail(order.InvalidOrderError("price", field+".price is out of range"))
			case p == present:
				a.Price = v
			}
			return err
		default:
			return d.Skip()
		}
	})

	switch productID {
	case absent:
		b.fail(order.MissingFieldError(field + ".product_id"))
	case malformed:
		b.fail(order.InvalidTypeError(field+".product_id", "integer"))
	}
	return a, err
}

// readInt reads an integer given as a JSON number or a numeric string.
// The returned error is a syntax error only.
func readInt(d *jx.Decoder) (int64, presence, error) {
	switch d.Next() {
	case jx.Null:
		return 0, absent, d.Null()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return 0, malformed, err
		}
		return parseInt(n.String())
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, malformed, err
		}
		return parseInt(s)
	default:
		return 0, malformed, d.Skip()
	}
}

// readID is readInt restricted to the range of an INTEGER key column.
func readID(d *jx.Decoder) (int64, presence, error) {
	v, p, err := readInt(d)
	if p == present && (v < math.MinInt32 || v > order.MaxID) {
		return 0, malformed, err
	}
	return v, p, err
}

func parseInt(s string) (int64, presence, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, present, nil
	}
	// 7.0 and 1e2 are integers too.
	v, ok := parseDecimal(s)
	if !ok || !v.IsInteger() || !v.BigInt().IsInt64() {
		return 0, malformed, nil
	}
	return v.IntPart(), present, nil
}

// parseDecimal rejects exponents that would make later arithmetic allocate
// huge intermediates (1e999999999, 1e-999999999).
func parseDecimal(s string) (decimal.Decimal, bool) {
	v, err := decimal.NewFromString(s)
	if err != nil || v.Exponent() < -maxExponent || v.Exponent() > maxExponent {
		return decimal.Zero, false
	}
	return v, true
}

const maxExponent = 64

func priceInRange(v decimal.Decimal) bool {
	return v.Abs().LessThan(order.MaxPrice)
}

// readDecimal reads a JSON number or numeric string into a decimal.
func readDecimal(d *jx.Decoder) (decimal.Decimal, presence, error) {
	var s string
	switch d.Next() {
	case jx.Null:
		return decimal.Zero, absent, d.Null()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, malformed, err
		}
		s = n.String()
	case jx.String:
		v, err := d.Str()
		if err != nil {
			return decimal.Zero, malformed, err
		}
		s = strings.TrimSpace(v)
	default:
		return decimal.Zero, malformed, d.Skip()
	}

	v, ok := parseDecimal(s)
	if !ok {
		return decimal.Zero, malformed, nil
	}
	return v, present, nil
}

// readString returns "" for null.
func readString(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.Null:
		return "", d.Null()
	case jx.String:
		return d.Str()
	default:
		return "", order.InvalidOrderError("modifications", "modification values must be strings")
	}
}

func readTimestamp(d *jx.Decoder) (*time.Time, error) {
	s, err := readString(d)
	if err != nil {
		var vErr *order.ValidationError
		if errors.As(err, &vErr) {
			return nil, order.InvalidOrderError("timestamp", "timestamp must be an ISO-8601 date-time")
		}
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, order.InvalidOrderError("timestamp", "timestamp must be an ISO-8601 date-time")
	}
	return &ts, nil
}

// Response encoding. Money is written as a JSON number with at least two
// decimal places and never rounded.

func encodeMoney(e *jx.Encoder, v decimal.Decimal) {
	s := v.String()
	if v.Exponent() >= -2 {
		s = v.StringFixed(2)
	}
	e.Num(jx.Num(s))
}

func encodeOptString[T ~string](e *jx.Encoder, v *T) {
	if v == nil {
		e.Null()
		return
	}
	e.Str(string(*v))
}

func encodeItem(e *jx.Encoder, it order.Item) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("item_id", func(e *jx.Encoder) { e.Int64(it.ID) })
		e.Field("order_id", func(e *jx.Encoder) { e.Int64(it.OrderID) })
		e.Field("product_id", func(e *jx.Encoder) { e.Int64(it.ProductID) })
		if it.ProductName != "" {
			e.Field("product_name", func(e *jx.Encoder) { e.Str(it.ProductName) })
		}
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, it.Price) })
		e.Field("sugar_level", func(e *jx.Encoder) { encodeOptString(e, it.SugarLevel) })
		e.Field("ice_level", func(e *jx.Encoder) { encodeOptString(e, it.IceLevel) })
		e.Field("group_id", func(e *jx.Encoder) { e.Int(it.GroupID) })
	})
}

func encodeOrder(e *jx.Encoder, o order.Order, withItems bool) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("order_id", func(e *jx.Encoder) { e.Int64(o.ID) })
		e.Field("member_id", func(e *jx.Encoder) { e.Int64(o.MemberID) })
		e.Field("employee_id", func(e *jx.Encoder) { e.Int64(o.EmployeeID) })
		e.Field("order_time", func(e *jx.Encoder) { e.Str(o.OrderTime.UTC().Format(time.RFC3339Nano)) })
		e.Field("order_status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("total", func(e *jx.Encoder) { encodeMoney(e, o.Total) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				if !withItems {
					return
				}
				for _, it := range o.Items {
					encodeItem(e, it)
				}
			})
		})
	})
}

func encodeConfirmation(e *jx.Encoder, c *order.Confirmation) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("success", func(e *jx.Encoder) { e.Bool(true) })
		e.Field("orderId", func(e *jx.Encoder) { e.Int64(c.Order.ID) })
		e.Field("message", func(e *jx.Encoder) { e.Str("Order placed successfully") })
		e.Field("order", func(e *jx.Encoder) { encodeOrder(e, *c.Order, true) })
		if len(c.Skipped) > 0 {
			e.Field("stock_skipped", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, s := range c.Skipped {
						e.Obj(func(e *jx.Encoder) {
							e.Field("product_id", func(e *jx.Encoder) { e.Int64(s.ProductID) })
							e.Field("quantity", func(e *jx.Encoder) { e.Int(s.Quantity) })
						})
					}
				})
			})
		}
	})
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("product_id", func(e *jx.Encoder) { e.Int64(p.ID) })
		e.Field("product_name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, p.Price) })
		e.Field("stock", func(e *jx.Encoder) {
			if !p.Tracked() {
				e.Null()
				return
			}
			e.Int(*p.Stock)
		})
	})
}
