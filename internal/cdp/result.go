package cdp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// member is one name/value pair of a JSON object, in wire order.
type member struct {
	name  string
	value json.RawMessage
}

// objectMembers splits a JSON object into its members, preserving order.
func objectMembers(raw json.RawMessage) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("result is not an object")
	}

	var members []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		members = append(members, member{name: name, value: value})
	}
	return members, nil
}

// decodeResult shapes a command result body into T.
//
// Most commands wrap a single payload member, which is decoded directly as
// T. When T is itself a container (it declares a field for that member, or
// the object has several members) the whole object is decoded instead. A
// type mismatch on the single-member path falls back to the whole object.
func decodeResult[T any](method string, raw json.RawMessage) (T, error) {
	var v T
	if p, ok := any(&v).(*json.RawMessage); ok {
		*p = append(json.RawMessage(nil), raw...)
		return v, nil
	}

	target := reflect.TypeFor[T]()
	members, err := objectMembers(raw)
	if err == nil && len(members) == 1 && !hasJSONField(target, members[0].name) {
		err := json.Unmarshal(members[0].value, &v)
		if err == nil {
			return v, nil
		}
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return v, &DecodeError{Method: method, Type: target.String(), Err: err}
		}
		v = *new(T)
	}

	if err := json.Unmarshal(raw, &v); err != nil {
		return *new(T), &DecodeError{Method: method, Type: target.String(), Err: err}
	}
	return v, nil
}

var jsonFieldCache sync.Map // map[reflect.Type]map[string]struct{}

// hasJSONField reports whether struct type t (or *t) decodes a member called
// name. Matching is case-insensitive, as in encoding/json.
func hasJSONField(t reflect.Type, name string) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	fields, ok := jsonFieldCache.Load(t)
	if !ok {
		fields, _ = jsonFieldCache.LoadOrStore(t, collectJSONFields(t, map[string]struct{}{}))
	}
	_, found := fields.(map[string]struct{})[strings.ToLower(name)]
	return found
}

func collectJSONFields(t reflect.Type, into map[string]struct{}) map[string]struct{} {
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				collectJSONFields(ft, into)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		into[strings.ToLower(name)] = struct{}{}
	}
	return into
}
