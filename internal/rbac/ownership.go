package rbac

import (
	"encoding/json"
	"math"
	"math/big"
	"strings"

	"github.com/spf13/cast"
)

// Record is an opaque entity whose attributes can be read by name.
type Record interface {
	Field(name string) (any, bool)
}

// Fields adapts a plain attribute map to Record.
type Fields map[string]any

// Field implements Record.
func (f Fields) Field(name string) (any, bool) {
	v, ok := f[name]
	return v, ok
}

// Ownership is the outcome of comparing a record's owner with the actor.
type Ownership int

const (
	// OwnershipNotApplicable means no record was supplied, e.g. list actions.
	OwnershipNotApplicable Ownership = iota
	// OwnershipOwned means the record's owner field equals the actor's id.
	OwnershipOwned
	// OwnershipNotOwned means the record belongs to someone else or has no usable owner.
	OwnershipNotOwned
)

func (o Ownership) String() string {
	switch o {
	case OwnershipOwned:
		return "owned"
	case OwnershipNotOwned:
		return "not_owned"
	default:
		return "not_applicable"
	}
}

// EvaluateOwnership decides whether user owns record through ownerField.
func EvaluateOwnership(record Record, ownerField string, user Principal) Ownership {
	if isNilRecord(record) {
		return OwnershipNotApplicable
	}
	if isNilPrincipal(user) {
		return OwnershipNotOwned
	}
	if ownerField == "" {
		ownerField = DefaultOwnerField
	}
	raw, ok := record.Field(ownerField)
	if !ok {
		return OwnershipNotOwned
	}
	owner, ok := ownerID(raw)
	if !ok || owner != user.GetID() {
		return OwnershipNotOwned
	}
	return OwnershipOwned
}

func isNilRecord(record Record) bool {
	if record == nil {
		return true
	}
	if f, ok := record.(Fields); ok && f == nil {
		return true
	}
	return false
}

// ownerID normalizes an owner attribute to an int64 so ids compare by value
// regardless of their Go type.
func ownerID(raw any) (int64, bool) {
	switch v := raw.(type) {
	case nil, bool:
		return 0, false
	case float32:
		return integralFloat(float64(v))
	case float64:
		return integralFloat(v)
	case json.Number:
		if id, err := v.Int64(); err == nil {
			return id, true
		}
		return exactInteger(string(v))
	}
	id, err := cast.ToInt64E(raw)
	if err != nil {
		return 0, false
	}
	return id, true
}

// exactInteger accepts decimal or exponent notation only when the value is
// exactly an int64, so no digit is lost to float rounding.
func exactInteger(s string) (int64, bool) {
	if strings.Contains(s, "/") {
		return 0, false
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok || !r.IsInt() || !r.Num().IsInt64() {
		return 0, false
	}
	return r.Num().Int64(), true
}

func integralFloat(v float64) (int64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, false
	}
	return int64(v), true
}
