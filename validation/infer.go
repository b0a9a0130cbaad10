package validation

// typeRules maps unambiguous rule names to a type. Entries are checked in
// order so more specific rules win over generic ones.
var typeRules = []struct {
	tag   TypeTag
	rules []string
}{
	{TypeBoolean, []string{"boolean", "bool", "accepted", "declined"}},
	{TypeEmail, []string{"email"}},
	{TypeURL, []string{"url", "active_url"}},
	{TypeUUID, []string{"uuid"}},
	{TypeULID, []string{"ulid"}},
	{TypeIP, []string{"ip", "ipv4", "ipv6"}},
	{TypeNumber, []string{"integer", "numeric", "decimal", "digits", "digits_between", "min_digits", "max_digits", "multiple_of"}},
	{TypeArray, []string{"array", "list", "distinct", "required_array_keys"}},
	{TypeJSON, []string{"json"}},
	{TypeDate, []string{"date", "date_format", "date_equals", "after", "after_or_equal", "before", "before_or_equal"}},
	{TypeImage, []string{"image"}},
	{TypeFile, []string{"file", "mimes", "mimetypes", "extensions", "dimensions"}},
	{TypeString, []string{
		"string", "alpha", "alpha_num", "alpha_dash", "ascii", "lowercase", "uppercase",
		"starts_with", "ends_with", "doesnt_start_with", "doesnt_end_with", "hex_color",
		"mac_address", "timezone", "regex", "not_regex", "confirmed", "password",
		"password_letters", "password_mixed", "password_numbers", "password_symbols",
		"password_uncompromised", "current_password",
	}},
}

// InferType infers the base type of a set: enum membership first, then the
// rule table, then behavioral probing.
func (r *Resolver) InferType(set *Set) TypeTag {
	if t, ok := FastType(set); ok {
		return t
	}
	p := r.prober
	if p == nil {
		p = DefaultProber()
	}
	return p.Infer(set)
}

// InferType infers with the default prober.
func InferType(set *Set) TypeTag {
	if t, ok := FastType(set); ok {
		return t
	}
	return DefaultProber().Infer(set)
}

// FastType infers a type from rule names alone. ok is false when no rule
// carries a lexical signal.
func FastType(set *Set) (TypeTag, bool) {
	if v, ok := set.Get("in"); ok && len(v.Parameters) > 1 {
		return EnumType(v.StringParams()), true
	}
	if v, ok := set.Get("enum"); ok && len(v.Parameters) > 0 {
		return EnumType(v.StringParams()), true
	}
	for _, tr := range typeRules {
		if set.HasAny(tr.rules...) {
			return tr.tag, true
		}
	}
	if len(set.Validations) == 0 {
		return TypeString, true
	}
	return "", false
}
