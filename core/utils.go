package core

import (
	"reflect"
	"strings"
	"time"

	"github.com/kat-co/vala"
)

// NowFunc returns the current time. Tests may replace it.
var NowFunc = time.Now

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// DateLayout is the layout of calendar dates (birth, graduation, attendance).
const DateLayout = "2006-01-02"

// IsNotNil is vala.IsNotNil for interface params: it also accepts implementations
// that are plain values (structs, numbers) instead of panicking on them.
func IsNotNil(obtained interface{}, paramName string) vala.Checker {
	return func() (bool, string) {
		msg := "Parameter was nil: " + paramName
		if obtained == nil {
			return false, msg
		}
		switch v := reflect.ValueOf(obtained); v.Kind() {
		case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
			return !v.IsNil(), msg
		default:
			return true, msg
		}
	}
}
