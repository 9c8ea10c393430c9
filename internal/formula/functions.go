package formula

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// handler executes one formula function over its resolved arguments.
type handler func(args []any) (any, error)

// functions is the static dispatch table. Keys are uppercase; dispatch is
// case-insensitive. New functions are added here and nowhere else.
var functions = map[string]handler{
	"YEAR":  dateField("YEAR", func(t time.Time) int { return t.Year() }),
	"MONTH": dateField("MONTH", func(t time.Time) int { return int(t.Month()) }),
	"DAY":   dateField("DAY", func(t time.Time) int { return t.Day() }),

	"DATE":     fnDate,
	"NOW":      fnNow,
	"DATEADD":  fnDateAdd,
	"DATEDIFF": fnDateDiff,

	"ROUND": fnRound,
	"FLOOR": numeric1("FLOOR", math.Floor),
	"CEIL":  numeric1("CEIL", math.Ceil),
	"ABS":   numeric1("ABS", math.Abs),
	"MAX":   fnMax,
	"MIN":   fnMin,
	"SUM":   fnSum,
	"AVG":   fnAvg,
	"POWER": fnPower,

	"LEFT":      fnLeft,
	"RIGHT":     fnRight,
	"LEN":       fnLen,
	"LOWER":     string1(strings.ToLower),
	"UPPER":     string1(strings.ToUpper),
	"TRIM":      string1(strings.TrimSpace),
	"CONCAT":    fnConcat,
	"REPLACE":   fnReplace,
	"SUBSTRING": fnSubstring,

	"IF":       fnIf,
	"ISEMPTY":  fnIsEmpty,
	"ISNULL":   fnIsNull,
	"ISNUMBER": fnIsNumber,
}

// arity returns ErrMalformedArgument unless min <= len(args) <= max.
// max < 0 means unbounded.
func arity(name string, args []any, min, max int) error {
	n := len(args)
	if n >= min && (max < 0 || n <= max) {
		return nil
	}
	want := fmt.Sprintf("%d", min)
	switch {
	case max < 0:
		want = fmt.Sprintf("at least %d", min)
	case max != min:
		want = fmt.Sprintf("%d to %d", min, max)
	}
	return fmt.Errorf("%w: %s expects %s arguments, got %d", ErrMalformedArgument, name, want, n)
}

func dateField(name string, field func(time.Time) int) handler {
	return func(args []any) (any, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		t, err := toTime(args[0])
		if err != nil {
			return nil, err
		}
		return field(t), nil
	}
}

func fnDate(args []any) (any, error) {
	if err := arity("DATE", args, 3, 3); err != nil {
		return nil, err
	}
	y, err := toFloat(args[0])
	if err != nil {
		return nil, err
	}
	m, err := toFloat(args[1])
	if err != nil {
		return nil, err
	}
	d, err := toFloat(args[2])
	if err != nil {
		return nil, err
	}
	t := time.Date(int(y), time.Month(int(m)), int(d), 0, 0, 0, 0, time.UTC)
	return t.Format("2006-01-02"), nil
}

func fnNow(args []any) (any, error) {
	if err := arity("NOW", args, 0, 0); err != nil {
		return nil, err
	}
	return time.Now(), nil
}

// dateUnits maps DATEADD unit names (singular and plural accepted) to a
// calendar delta.
var dateUnits = map[string]func(t time.Time, n int) time.Time{
	"day":    func(t time.Time, n int) time.Time { return t.AddDate(0, 0, n) },
	"week":   func(t time.Time, n int) time.Time { return t.AddDate(0, 0, 7*n) },
	"month":  func(t time.Time, n int) time.Time { return t.AddDate(0, n, 0) },
	"year":   func(t time.Time, n int) time.Time { return t.AddDate(n, 0, 0) },
	"hour":   func(t time.Time, n int) time.Time { return t.Add(time.Duration(n) * time.Hour) },
	"minute": func(t time.Time, n int) time.Time { return t.Add(time.Duration(n) * time.Minute) },
	"second": func(t time.Time, n int) time.Time { return t.Add(time.Duration(n) * time.Second) },
}

func fnDateAdd(args []any) (any, error) {
	if err := arity("DATEADD", args, 3, 3); err != nil {
		return nil, err
	}
	t, err := toTime(args[0])
	if err != nil {
		return nil, err
	}
	unit := strings.TrimSuffix(strings.ToLower(toString(args[1])), "s")
	add, ok := dateUnits[unit]
	if !ok {
		return nil, fmt.Errorf("%w: DATEADD unit %q", ErrMalformedArgument, toString(args[1]))
	}
	n, err := toFloat(args[2])
	if err != nil {
		return nil, err
	}
	return add(t, int(n)), nil
}

// fnDateDiff returns the whole-day difference between two dates as a
// magnitude, matching the day-difference convention of the document mappings
// that use it.
func fnDateDiff(args []any) (any, error) {
	if err := arity("DATEDIFF", args, 2, 2); err != nil {
		return nil, err
	}
	a, err := toTime(args[0])
	if err != nil {
		return nil, err
	}
	b, err := toTime(args[1])
	if err != nil {
		return nil, err
	}
	days := int(math.Abs(a.Sub(b).Hours()) / 24)
	return days, nil
}

func fnRound(args []any) (any, error) {
	if err := arity("ROUND", args, 1, 2); err != nil {
		return nil, err
	}
	x, err := toFloat(args[0])
	if err != nil {
		return nil, err
	}
	precision := 0.0
	if len(args) == 2 {
		if precision, err = toFloat(args[1]); err != nil {
			return nil, err
		}
	}
	shift := math.Pow(10, precision)
	return math.Round(x*shift) / shift, nil
}

func numeric1(name string, fn func(float64) float64) handler {
	return func(args []any) (any, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		x, err := toFloat(args[0])
		if err != nil {
			return nil, err
		}
		return fn(x), nil
	}
}

func fnMax(args []any) (any, error) {
	return fold("MAX", args, math.Max)
}

func fnMin(args []any) (any, error) {
	return fold("MIN", args, math.Min)
}

func fold(name string, args []any, combine func(a, b float64) float64) (any, error) {
	if err := arity(name, args, 1, -1); err != nil {
		return nil, err
	}
	acc, err := toFloat(args[0])
	if err != nil {
		return nil, err
	}
	for _, arg := range args[1:] {
		x, err := toFloat(arg)
		if err != nil {
			return nil, err
		}
		acc = combine(acc, x)
	}
	return acc, nil
}

func fnSum(args []any) (any, error) {
	if err := arity("SUM", args, 1, -1); err != nil {
		return nil, err
	}
	var sum float64
	for _, arg := range args {
		x, err := toFloat(arg)
		if err != nil {
			return nil, err
		}
		sum += x
	}
	return sum, nil
}

func fnAvg(args []any) (any, error) {
	sum, err := fnSum(args)
	if err != nil {
		return nil, err
	}
	return sum.(float64) / float64(len(args)), nil
}

func fnPower(args []any) (any, error) {
	if err := arity("POWER", args, 2, 2); err != nil {
		return nil, err
	}
	x, err := toFloat(args[0])
	if err != nil {
		return nil, err
	}
	y, err := toFloat(args[1])
	if err != nil {
		return nil, err
	}
	return math.Pow(x, y), nil
}

func fnLeft(args []any) (any, error) {
	if err := arity("LEFT", args, 2, 2); err != nil {
		return nil, err
	}
	n, err := toFloat(args[1])
	if err != nil {
		return nil, err
	}
	return substr(toString(args[0]), 0, int(n)), nil
}

func fnRight(args []any) (any, error) {
	if err := arity("RIGHT", args, 2, 2); err != nil {
		return nil, err
	}
	n, err := toFloat(args[1])
	if err != nil {
		return nil, err
	}
	return substr(toString(args[0]), -int(n), -1), nil
}

func fnLen(args []any) (any, error) {
	if err := arity("LEN", args, 1, 1); err != nil {
		return nil, err
	}
	return len([]rune(toString(args[0]))), nil
}

func string1(fn func(string) string) handler {
	return func(args []any) (any, error) {
		if err := arity("string function", args, 1, 1); err != nil {
			return nil, err
		}
		return fn(toString(args[0])), nil
	}
}

func fnConcat(args []any) (any, error) {
	var b strings.Builder
	for _, arg := range args {
		b.WriteString(toString(arg))
	}
	return b.String(), nil
}

// fnReplace takes the subject first: REPLACE(s, search, replacement).
func fnReplace(args []any) (any, error) {
	if err := arity("REPLACE", args, 3, 3); err != nil {
		return nil, err
	}
	return strings.ReplaceAll(toString(args[0]), toString(args[1]), toString(args[2])), nil
}

func fnSubstring(args []any) (any, error) {
	if err := arity("SUBSTRING", args, 2, 3); err != nil {
		return nil, err
	}
	start, err := toFloat(args[1])
	if err != nil {
		return nil, err
	}
	length := -1
	if len(args) == 3 {
		l, err := toFloat(args[2])
		if err != nil {
			return nil, err
		}
		length = int(l)
	}
	return substr(toString(args[0]), int(start), length), nil
}

func fnIf(args []any) (any, error) {
	if err := arity("IF", args, 3, 3); err != nil {
		return nil, err
	}
	if isTruthy(args[0]) {
		return args[1], nil
	}
	return args[2], nil
}

func fnIsEmpty(args []any) (any, error) {
	if err := arity("ISEMPTY", args, 1, 1); err != nil {
		return nil, err
	}
	return !isTruthy(args[0]), nil
}

func fnIsNull(args []any) (any, error) {
	if err := arity("ISNULL", args, 1, 1); err != nil {
		return nil, err
	}
	return args[0] == nil, nil
}

func fnIsNumber(args []any) (any, error) {
	if err := arity("ISNUMBER", args, 1, 1); err != nil {
		return nil, err
	}
	_, err := toFloat(args[0])
	return err == nil, nil
}

// substr slices s by runes. A negative start counts from the end; a negative
// length means "to the end of the string". Out-of-range indexes clamp.
func substr(s string, start, length int) string {
	runes := []rune(s)
	if start < 0 {
		start = len(runes) + start
		if start < 0 {
			start = 0
		}
	}
	if start >= len(runes) {
		return ""
	}
	end := len(runes)
	if length >= 0 && start+length < end {
		end = start + length
	}
	return string(runes[start:end])
}
