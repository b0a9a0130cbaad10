package validation

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Check decides whether a value passes one rule. It is used for rules whose
// parameters cannot be expressed as a validator tag.
type Check func(value any, v ResolvedValidation) bool

// Candidate is one type the prober tries, with its sample values.
type Candidate struct {
	Type    TypeTag
	Samples []any
}

// Score is the pass ratio of one candidate.
type Score struct {
	Type  TypeTag
	Ratio float64
}

// DefaultCandidates are listed in specificity order.
var DefaultCandidates = []Candidate{
	{TypeBoolean, []any{true, false, 1, 0, "1", "0"}},
	{TypeEmail, []any{"user@example.com", "john.doe@company.org"}},
	{TypeURL, []any{"https://example.com", "http://localhost:8000/path"}},
	{TypeNumber, []any{123, 0, -1, 3.14, "42", "3.14"}},
	{TypeArray, []any{[]any{1, 2, 3}, []any{"a"}, []any{}}},
	{TypeJSON, []any{`{"key":"value"}`, `[1,2,3]`}},
	{TypeDate, []any{"2024-01-15", "2023-12-31"}},
	{TypeString, []any{"hello world", "Lorem ipsum dolor", "not-an-email"}},
}

// Prober infers a type by running sample values through the rules of a set
// and scoring pass ratios per candidate type.
type Prober struct {
	validate   *validator.Validate
	mu         sync.RWMutex
	checks     map[string]Check
	candidates []Candidate
	threshold  float64
	tieBand    float64
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithThreshold sets the minimum pass ratio a type needs to be picked.
func WithThreshold(t float64) ProberOption { return func(p *Prober) { p.threshold = t } }

// WithTieBand sets the ratio above which specificity order breaks ties.
func WithTieBand(t float64) ProberOption { return func(p *Prober) { p.tieBand = t } }

// WithCandidates replaces the candidate types.
func WithCandidates(c []Candidate) ProberOption { return func(p *Prober) { p.candidates = c } }

// NewProber returns a prober backed by go-playground/validator.
func NewProber(opts ...ProberOption) *Prober {
	p := &Prober{
		validate:   validator.New(),
		checks:     make(map[string]Check),
		candidates: DefaultCandidates,
		threshold:  0.5,
		tieBand:    0.8,
	}
	for tag, fn := range laravelValidations {
		if err := p.validate.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("validation: register %s: %v", tag, err))
		}
	}
	for rule, c := range builtinChecks {
		p.checks[rule] = c
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var (
	defaultProber     *Prober
	defaultProberOnce sync.Once
)

// DefaultProber returns a shared prober with default settings.
func DefaultProber() *Prober {
	defaultProberOnce.Do(func() { defaultProber = NewProber() })
	return defaultProber
}

// RegisterCheck teaches the prober how a custom rule behaves, so sets made only
// of custom rules still infer a type.
func (p *Prober) RegisterCheck(rule string, c Check) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checks[strings.ToLower(rule)] = c
}

// Infer returns the best candidate type for the set. A specific type must
// score above the plain string samples; otherwise the set gives no signal and
// the result is string.
func (p *Prober) Infer(set *Set) TypeTag {
	scores := p.Scores(set)
	baseline := 0.0
	for _, s := range scores {
		if s.Type == TypeString {
			baseline = s.Ratio
		}
	}
	best := -1.0
	for _, s := range scores {
		if s.Type != TypeString && s.Ratio > baseline && s.Ratio >= p.threshold && s.Ratio > best {
			best = s.Ratio
		}
	}
	if best < 0 {
		return TypeString
	}
	for _, s := range scores {
		if s.Type == TypeString || s.Ratio <= baseline {
			continue
		}
		if best >= p.tieBand && s.Ratio >= p.tieBand {
			return s.Type
		}
		if s.Ratio == best {
			return s.Type
		}
	}
	return TypeString
}

// Scores returns the pass ratio of every candidate, in candidate order.
func (p *Prober) Scores(set *Set) []Score {
	out := make([]Score, 0, len(p.candidates))
	for _, c := range p.candidates {
		if len(c.Samples) == 0 {
			continue
		}
		passed := 0
		for _, s := range c.Samples {
			if p.Passes(set, s) {
				passed++
			}
		}
		out = append(out, Score{Type: c.Type, Ratio: float64(passed) / float64(len(c.Samples))})
	}
	return out
}

// Passes reports whether value passes every probe-able rule of the set. Rules
// without a probe are neutral; a panicking probe counts as a failure.
func (p *Prober) Passes(set *Set, value any) bool {
	for _, v := range set.Validations {
		if !p.passes(v, value) {
			return false
		}
	}
	return true
}

func (p *Prober) passes(v ResolvedValidation, value any) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	rule := strings.ToLower(v.Rule)
	p.mu.RLock()
	c, found := p.checks[rule]
	p.mu.RUnlock()
	if found {
		return c(value, v)
	}
	tagFn, found := probeTags[rule]
	if !found {
		return true
	}
	tag := tagFn(v)
	if tag == "" {
		return true
	}
	return p.validate.Var(value, tag) == nil
}

// probeTags maps rules to validator tags. An empty tag is neutral.
var probeTags = map[string]func(ResolvedValidation) string{
	"required":       fixed("laravel_required"),
	"filled":         fixed("laravel_required"),
	"string":         fixed("laravel_string"),
	"min":            sized("min"),
	"max":            sized("max"),
	"size":           sized("len"),
	"length":         sized("len"),
	"gt":             sized("gt"),
	"gte":            sized("gte"),
	"lt":             sized("lt"),
	"lte":            sized("lte"),
	"between":        between,
	"alpha":          fixed("alpha"),
	"alpha_num":      fixed("alphanum"),
	"alpha_dash":     fixed("laravel_alpha_dash"),
	"ascii":          fixed("ascii"),
	"lowercase":      fixed("lowercase"),
	"uppercase":      fixed("uppercase"),
	"hex_color":      fixed("hexcolor"),
	"mac_address":    fixed("mac"),
	"timezone":       fixed("timezone"),
	"email":          fixed("email"),
	"url":            fixed("url"),
	"active_url":     fixed("url"),
	"uuid":           fixed("uuid"),
	"ulid":           fixed("ulid"),
	"ip":             fixed("ip"),
	"ipv4":           fixed("ipv4"),
	"ipv6":           fixed("ipv6"),
	"json":           fixed("json"),
	"boolean":        fixed("laravel_boolean"),
	"bool":           fixed("laravel_boolean"),
	"accepted":       fixed("laravel_accepted"),
	"declined":       fixed("laravel_declined"),
	"numeric":        fixed("numeric"),
	"integer":        fixed("laravel_integer"),
	"array":          fixed("laravel_array"),
	"list":           fixed("laravel_array"),
	"date":           fixed("laravel_date"),
	"digits":         sized("laravel_digits"),
	"min_digits":     sized("laravel_min_digits"),
	"max_digits":     sized("laravel_max_digits"),
	"multiple_of":    sized("laravel_multiple_of"),
	"decimal":        spaced("laravel_decimal"),
	"digits_between": spaced("laravel_digits_between"),
}

func fixed(tag string) func(ResolvedValidation) string {
	return func(ResolvedValidation) string { return tag }
}

// sized renders size comparisons. Field references are neutral.
func sized(tag string) func(ResolvedValidation) string {
	return func(v ResolvedValidation) string {
		n, ok := v.NumberParam(0)
		if !ok {
			return ""
		}
		return tag + "=" + strconv.FormatFloat(n, 'f', -1, 64)
	}
}

func between(v ResolvedValidation) string {
	lo, ok1 := v.NumberParam(0)
	hi, ok2 := v.NumberParam(1)
	if !ok1 || !ok2 {
		return ""
	}
	return "min=" + strconv.FormatFloat(lo, 'f', -1, 64) + ",max=" + strconv.FormatFloat(hi, 'f', -1, 64)
}

// spaced passes numeric parameters space separated, the way oneof does.
func spaced(tag string) func(ResolvedValidation) string {
	return func(v ResolvedValidation) string {
		parts := make([]string, 0, len(v.Parameters))
		for i := range v.Parameters {
			n, ok := v.NumberParam(i)
			if !ok {
				return ""
			}
			parts = append(parts, strconv.FormatFloat(n, 'f', -1, 64))
		}
		if len(parts) == 0 {
			return ""
		}
		return tag + "=" + strings.Join(parts, " ")
	}
}

var builtinChecks = map[string]Check{
	"in":                oneOf(true),
	"not_in":            oneOf(false),
	"starts_with":       affix(strings.HasPrefix, true),
	"ends_with":         affix(strings.HasSuffix, true),
	"doesnt_start_with": affix(strings.HasPrefix, false),
	"doesnt_end_with":   affix(strings.HasSuffix, false),
	"regex":             pattern(true),
	"not_regex":         pattern(false),
}

func oneOf(want bool) Check {
	return func(value any, v ResolvedValidation) bool {
		s, ok := scalar(value)
		if !ok {
			return false
		}
		for _, p := range v.StringParams() {
			if p == s {
				return want
			}
		}
		return !want
	}
}

func affix(match func(s, affix string) bool, want bool) Check {
	return func(value any, v ResolvedValidation) bool {
		s, ok := scalar(value)
		if !ok {
			return false
		}
		for _, p := range v.StringParams() {
			if match(s, p) {
				return want
			}
		}
		return !want
	}
}

var patternCache sync.Map

func pattern(want bool) Check {
	return func(value any, v ResolvedValidation) bool {
		re, err := CompilePattern(v.StringParam(0))
		if err != nil {
			return true
		}
		s, ok := scalar(value)
		if !ok {
			return false
		}
		return re.MatchString(s) == want
	}
}

// CompilePattern compiles a delimited PCRE-style pattern such as /^a+$/i into a
// Go regexp. Patterns using features RE2 lacks return an error.
func CompilePattern(src string) (*regexp.Regexp, error) {
	if re, ok := patternCache.Load(src); ok {
		return re.(*regexp.Regexp), nil
	}
	body, flags := SplitDelimited(src)
	prefix := ""
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			prefix += string(f)
		}
	}
	if prefix != "" {
		body = "(?" + prefix + ")" + body
	}
	re, err := regexp.Compile(body)
	if err != nil {
		return nil, err
	}
	patternCache.Store(src, re)
	return re, nil
}

// SplitDelimited separates a delimited pattern into its body and flags.
// Undelimited input is returned as the body.
func SplitDelimited(src string) (body, flags string) {
	src = strings.TrimSpace(src)
	if len(src) < 2 {
		return src, ""
	}
	open := src[0]
	closing := open
	switch open {
	case '(':
		closing = ')'
	case '{':
		closing = '}'
	case '[':
		closing = ']'
	case '<':
		closing = '>'
	}
	if open == '\\' || isWordByte(open) {
		return src, ""
	}
	end := strings.LastIndexByte(src, closing)
	if end <= 0 {
		return src, ""
	}
	return src[1:end], src[end+1:]
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b == ' '
}

// scalar formats strings and numbers; other kinds fail string-based rules.
func scalar(value any) (string, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	}
	return "", false
}

func fieldScalar(fl validator.FieldLevel) (string, bool) {
	f := fl.Field()
	if !f.IsValid() || !f.CanInterface() {
		return "", false
	}
	return scalar(f.Interface())
}

var alphaDash = regexp.MustCompile(`^[\pL\pM\pN_-]+$`)

var dateLayouts = []string{time.DateOnly, time.RFC3339, time.DateTime, "2006-01-02T15:04:05"}

// laravelValidations register Laravel rule semantics that validator's built-in
// tags do not match.
var laravelValidations = map[string]validator.Func{
	"laravel_required": func(fl validator.FieldLevel) bool {
		f := fl.Field()
		switch f.Kind() {
		case reflect.Invalid:
			return false
		case reflect.String:
			return strings.TrimSpace(f.String()) != ""
		case reflect.Slice, reflect.Map, reflect.Array:
			return f.Len() > 0
		case reflect.Pointer, reflect.Interface:
			return !f.IsNil()
		}
		return true
	},
	"laravel_string": func(fl validator.FieldLevel) bool {
		return fl.Field().Kind() == reflect.String
	},
	"laravel_boolean": func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() == reflect.Bool {
			return true
		}
		s, ok := fieldScalar(fl)
		return ok && (s == "0" || s == "1")
	},
	"laravel_accepted": truthy("yes", "on", "1", "true"),
	"laravel_declined": falsy("no", "off", "0", "false"),
	"laravel_integer": func(fl validator.FieldLevel) bool {
		s, ok := fieldScalar(fl)
		if !ok {
			return false
		}
		_, err := strconv.ParseInt(s, 10, 64)
		return err == nil
	},
	"laravel_array": func(fl validator.FieldLevel) bool {
		switch fl.Field().Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			return true
		}
		return false
	},
	"laravel_date": func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			return false
		}
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, fl.Field().String()); err == nil {
				return true
			}
		}
		return false
	},
	"laravel_alpha_dash": func(fl validator.FieldLevel) bool {
		s, ok := fieldScalar(fl)
		return ok && alphaDash.MatchString(s)
	},
	"laravel_digits": digitsCheck(func(n int, p []float64) bool { return len(p) == 1 && float64(n) == p[0] }),
	"laravel_min_digits": digitsCheck(func(n int, p []float64) bool {
		return len(p) == 1 && float64(n) >= p[0]
	}),
	"laravel_max_digits": digitsCheck(func(n int, p []float64) bool {
		return len(p) == 1 && float64(n) <= p[0]
	}),
	"laravel_digits_between": digitsCheck(func(n int, p []float64) bool {
		return len(p) == 2 && float64(n) >= p[0] && float64(n) <= p[1]
	}),
	"laravel_multiple_of": func(fl validator.FieldLevel) bool {
		s, ok := fieldScalar(fl)
		if !ok {
			return false
		}
		x, err := strconv.ParseFloat(s, 64)
		p := params(fl.Param())
		if err != nil || len(p) != 1 || p[0] == 0 {
			return false
		}
		q := x / p[0]
		return math.Abs(q-math.Round(q)) < 1e-9
	},
	"laravel_decimal": func(fl validator.FieldLevel) bool {
		s, ok := fieldScalar(fl)
		if !ok {
			return false
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return false
		}
		places := 0
		if i := strings.IndexByte(s, '.'); i >= 0 {
			places = len(s) - i - 1
		}
		p := params(fl.Param())
		switch len(p) {
		case 1:
			return float64(places) == p[0]
		case 2:
			return float64(places) >= p[0] && float64(places) <= p[1]
		}
		return false
	},
}

func truthy(values ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() == reflect.Bool {
			return fl.Field().Bool()
		}
		s, ok := fieldScalar(fl)
		return ok && slices.Contains(values, strings.ToLower(s))
	}
}

func falsy(values ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		if fl.Field().Kind() == reflect.Bool {
			return !fl.Field().Bool()
		}
		s, ok := fieldScalar(fl)
		return ok && slices.Contains(values, strings.ToLower(s))
	}
}

// digitsCheck applies Laravel's digit rules: the value must consist of digits
// only, and its length is compared against the parameters.
func digitsCheck(cmp func(n int, p []float64) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s, ok := fieldScalar(fl)
		if !ok || s == "" || strings.Trim(s, "0123456789") != "" {
			return false
		}
		return cmp(len(s), params(fl.Param()))
	}
}

func params(s string) []float64 {
	var out []float64
	for _, f := range strings.Fields(s) {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil
		}
		out = append(out, n)
	}
	return out
}

// DigitCount returns the number of digits in the integer part of x.
func DigitCount(x float64) int {
	return len(strconv.FormatFloat(math.Floor(math.Abs(x)), 'f', 0, 64))
}
