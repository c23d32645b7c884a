package order

import "fmt"

// IceLevel is the ice option of a drink.
type IceLevel string

const (
	IceHot     IceLevel = "Hot"
	IceNone    IceLevel = "No Ice"
	IceLess    IceLevel = "Less Ice"
	IceRegular IceLevel = "Regular"
	IceExtra   IceLevel = "Extra Ice"
)

// SugarLevel is the sweetness option of a drink.
type SugarLevel string

const (
	SugarNone    SugarLevel = "No Sugar"
	SugarLess    SugarLevel = "Less Sugar"
	SugarRegular SugarLevel = "Regular"
	SugarExtra   SugarLevel = "Extra Sugar"
)

var (
	iceLevels = map[IceLevel]struct{}{
		IceHot: {}, IceNone: {}, IceLess: {}, IceRegular: {}, IceExtra: {},
	}
	sugarLevels = map[SugarLevel]struct{}{
		SugarNone: {}, SugarLess: {}, SugarRegular: {}, SugarExtra: {},
	}
)

// ParseIceLevel converts a client value into an IceLevel. The empty string
// means "no ice option" and yields nil.
func ParseIceLevel(s string) (*IceLevel, error) {
	if s == "" {
		return nil, nil
	}
	v := IceLevel(s)
	if _, ok := iceLevels[v]; !ok {
		return nil, &ValidationError{
			Kind:    KindInvalidOrder,
			Field:   "iceLevel",
			Message: fmt.Sprintf("unknown ice level %q", s),
		}
	}
	return &v, nil
}

// ParseSugarLevel converts a client value into a SugarLevel. The empty
// string yields nil.
func ParseSugarLevel(s string) (*SugarLevel, error) {
	if s == "" {
		return nil, nil
	}
	v := SugarLevel(s)
	if _, ok := sugarLevels[v]; !ok {
		return nil, &ValidationError{
			Kind:    KindInvalidOrder,
			Field:   "sugarLevel",
			Message: fmt.Sprintf("unknown sugar level %q", s),
		}
	}
	return &v, nil
}
