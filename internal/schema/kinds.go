package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

// DateLayout is the accepted date format, DD.MM.YYYY.
const DateLayout = "02.01.2006"

// MaxAge bounds how many years before the current year a birthday may be.
const MaxAge = 70

// Gender codes accepted by the Gender field.
const (
	GenderUnknown = 0
	GenderMale    = 1
	GenderFemale  = 2
)

// Genders names every accepted gender code.
var Genders = map[int]string{
	GenderUnknown: "unknown",
	GenderMale:    "male",
	GenderFemale:  "female",
}

// now is a variable so tests can pin the current year for BirthDay.
var now = time.Now

var (
	errNotString  = errors.New("must be a string")
	errNotObject  = errors.New("must be an object")
	errNotEmail   = errors.New("must be a valid email address")
	errPhoneType  = errors.New("must be a string or an integer")
	errPhoneShape = errors.New("must be 11 characters long and start with 7")
	errDate       = errors.New(`must be a string in format "DD.MM.YYYY"`)
	errAge        = fmt.Errorf("age must not exceed %d years", MaxAge)
	errClientIDs  = errors.New("must be a non-empty list of non-negative integers")
)

// Char accepts any string.
func Char(name string, opts ...Option) Field {
	return NewField(name, checkChar, opts...)
}

// Arguments accepts a JSON object.
func Arguments(name string, opts ...Option) Field {
	return NewField(name, checkArguments, opts...)
}

// Email accepts a string containing "@".
func Email(name string, opts ...Option) Field {
	return NewField(name, checkEmail, opts...)
}

// Phone accepts a string or integer of 11 characters starting with "7" and
// binds it as a string.
func Phone(name string, opts ...Option) Field {
	return NewField(name, checkPhone, opts...)
}

// Date accepts a DD.MM.YYYY string and binds it as time.Time.
func Date(name string, opts ...Option) Field {
	return NewField(name, checkDate, opts...)
}

// BirthDay is a Date at most MaxAge years before the current year.
func BirthDay(name string, opts ...Option) Field {
	return NewField(name, checkBirthDay, opts...)
}

// Gender accepts one of the Genders codes.
func Gender(name string, opts ...Option) Field {
	return NewField(name, checkGender, opts...)
}

// ClientIDs accepts a non-empty list of non-negative integers and binds it
// as []int.
func ClientIDs(name string, opts ...Option) Field {
	return NewField(name, checkClientIDs, opts...)
}

func checkChar(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, errNotString
	}
	return s, nil
}

func checkArguments(v any) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return m, nil
}

func checkEmail(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, errNotString
	}
	if !strings.Contains(s, "@") {
		return nil, errNotEmail
	}
	return s, nil
}

func checkPhone(v any) (any, error) {
	var phone string
	if s, ok := v.(string); ok {
		phone = s
	} else if n, ok := asInt(v); ok {
		phone = strconv.FormatInt(n, 10)
	} else {
		return nil, errPhoneType
	}
	if len(phone) != 11 || phone[0] != '7' {
		return nil, errPhoneShape
	}
	return phone, nil
}

// parseDate folds every failure, including a non-string value, into the
// single format error.
func parseDate(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, errDate
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, errDate
	}
	return d, nil
}

func checkDate(v any) (any, error) {
	d, err := parseDate(v)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func checkBirthDay(v any) (any, error) {
	d, err := parseDate(v)
	if err != nil {
		return nil, err
	}
	if now().Year()-d.Year() > MaxAge {
		return nil, errAge
	}
	return d, nil
}

func checkGender(v any) (any, error) {
	n, ok := asInt(v)
	codes := genderCodes()
	if !ok || !slices.Contains(codes, int(n)) {
		parts := make([]string, len(codes))
		for i, c := range codes {
			parts[i] = strconv.Itoa(c)
		}
		return nil, fmt.Errorf("must be an integer, one of %s", strings.Join(parts, ", "))
	}
	return int(n), nil
}

func genderCodes() []int {
	codes := make([]int, 0, len(Genders))
	for c := range Genders {
		codes = append(codes, c)
	}
	slices.Sort(codes)
	return codes
}

func checkClientIDs(v any) (any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.Len() == 0 {
		return nil, errClientIDs
	}
	ids := make([]int, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		n, ok := asInt(rv.Index(i).Interface())
		if !ok || n < 0 {
			return nil, errClientIDs
		}
		ids = append(ids, int(n))
	}
	return ids, nil
}
