// Package testutil holds in-memory stand-ins for the Mongo repositories so
// services can be exercised without a database.
package testutil

import (
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Matches evaluates the subset of the Mongo query language the repositories
// emit: field equality (array fields match any element), $in, $nin, $ne,
// $or and $and.
func Matches(doc any, filter bson.M) bool {
	m := toM(doc)
	return matchM(m, filter)
}

func matchM(doc bson.M, filter bson.M) bool {
	for key, want := range filter {
		switch key {
		case "$or":
			if !anyOf(doc, want) {
				return false
			}
		case "$and":
			for _, sub := range each(want) {
				if !matchM(doc, asM(sub)) {
					return false
				}
			}
		default:
			if !matchField(doc[key], want) {
				return false
			}
		}
	}
	return true
}

func anyOf(doc bson.M, clauses any) bool {
	for _, sub := range each(clauses) {
		if matchM(doc, asM(sub)) {
			return true
		}
	}
	return false
}

func matchField(have, want any) bool {
	ops, isOps := want.(bson.M)
	if !isOps {
		return eq(have, want)
	}
	for op, arg := range ops {
		switch op {
		case "$in":
			found := false
			for _, v := range each(arg) {
				if eq(have, v) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case "$nin":
			for _, v := range each(arg) {
				if eq(have, v) {
					return false
				}
			}
		case "$ne":
			if eq(have, arg) {
				return false
			}
		default:
			panic("testutil: unsupported operator " + op)
		}
	}
	return true
}

func eq(have, want any) bool {
	if arr, ok := have.(primitive.A); ok {
		for _, v := range arr {
			if eq(v, want) {
				return true
			}
		}
		return false
	}
	return reflect.DeepEqual(norm(have), norm(want))
}

func norm(v any) any {
	if v == nil {
		return nil
	}
	if id, ok := v.(primitive.ObjectID); ok {
		return id
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return norm(rv.Elem().Interface())
	}
	return v
}

func each(v any) []any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func asM(v any) bson.M {
	switch t := v.(type) {
	case bson.M:
		return t
	case bson.D:
		return t.Map()
	}
	return toM(v)
}

func toM(v any) bson.M {
	b, err := bson.Marshal(v)
	if err != nil {
		panic(err)
	}
	var m bson.M
	if err := bson.Unmarshal(b, &m); err != nil {
		panic(err)
	}
	return m
}

// applySet copies the $set fields onto v, which must be a pointer.
func applySet(v any, set bson.M) {
	m := toM(v)
	for k, val := range set {
		m[k] = val
	}
	b, err := bson.Marshal(m)
	if err != nil {
		panic(err)
	}
	rv := reflect.ValueOf(v).Elem()
	rv.Set(reflect.Zero(rv.Type()))
	if err := bson.Unmarshal(b, v); err != nil {
		panic(err)
	}
}
