// Package schema implements structural validation of inbound JSON documents
// and path parameters against flat object schemas.
package schema

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/Strob0t/customerapi/internal/domain"
	"github.com/Strob0t/customerapi/internal/domain/customer"
)

// ValidateJSON checks data against s and returns every failure found.
// A nil result means the document is valid.
func ValidateJSON(s customer.Schema, data []byte) []domain.FieldFailure {
	if !gjson.ValidBytes(data) {
		return []domain.FieldFailure{{Field: "", Message: "body must be valid JSON"}}
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return []domain.FieldFailure{{Field: "", Message: "must be object"}}
	}

	fields := make(map[string]gjson.Result)
	doc.ForEach(func(key, value gjson.Result) bool {
		fields[key.String()] = value
		return true
	})

	var failures []domain.FieldFailure
	for _, name := range s.Required {
		if _, ok := fields[name]; !ok {
			failures = append(failures, requiredFailure(name))
		}
	}
	for _, name := range sortedProperties(s) {
		value, ok := fields[name]
		if !ok {
			continue
		}
		if !matchesJSONType(value, s.Properties[name]) {
			failures = append(failures, typeFailure(name, s.Properties[name]))
		}
	}
	return failures
}

// ValidateParams checks raw string parameters (path or query) against s.
// Empty values count as missing.
func ValidateParams(s customer.Schema, params map[string]string) []domain.FieldFailure {
	var failures []domain.FieldFailure
	for _, name := range s.Required {
		if params[name] == "" {
			failures = append(failures, requiredFailure(name))
		}
	}
	for _, name := range sortedProperties(s) {
		raw, ok := params[name]
		if !ok || raw == "" {
			continue
		}
		if s.Properties[name] == customer.TypeInteger {
			if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
				failures = append(failures, typeFailure(name, customer.TypeInteger))
			}
		}
	}
	return failures
}

// matchesJSONType reports whether v has type t. Integers must be plain
// base-10 tokens that fit in an int64.
func matchesJSONType(v gjson.Result, t customer.FieldType) bool {
	switch t {
	case customer.TypeString:
		return v.Type == gjson.String
	case customer.TypeInteger:
		if v.Type != gjson.Number {
			return false
		}
		_, err := strconv.ParseInt(v.Raw, 10, 64)
		return err == nil
	default:
		return true
	}
}

func requiredFailure(name string) domain.FieldFailure {
	return domain.FieldFailure{
		Field:   name,
		Message: fmt.Sprintf("must have required property '%s'", name),
	}
}

func typeFailure(name string, t customer.FieldType) domain.FieldFailure {
	return domain.FieldFailure{Field: name, Message: "must be " + string(t)}
}

func sortedProperties(s customer.Schema) []string {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
