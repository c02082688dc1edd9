package service

import (
	"reflect"

	jsoniter "github.com/json-iterator/go"

	"day-organiser/internal/model"
)

const (
	historyMaxDepth = 2

	placeholderArray  = "[Array]"
	placeholderObject = "[Object]"
	placeholderBroken = "[Unserializable]"
)

var historyJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// sanitizeHistoryValue turns v into plain JSON data, replacing containers nested
// deeper than historyMaxDepth with placeholders. Values that cannot be encoded
// degrade to a placeholder instead of failing the update.
func sanitizeHistoryValue(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return nil
	}
	raw, err := historyJSON.Marshal(v)
	if err != nil {
		return placeholderBroken
	}
	var plain any
	if err := historyJSON.Unmarshal(raw, &plain); err != nil {
		return placeholderBroken
	}
	return limitDepth(plain, 0)
}

func limitDepth(v any, depth int) any {
	switch x := v.(type) {
	case map[string]any:
		if depth >= historyMaxDepth {
			return placeholderObject
		}
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = limitDepth(item, depth+1)
		}
		return out
	case []any:
		if depth >= historyMaxDepth {
			return placeholderArray
		}
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = limitDepth(item, depth+1)
		}
		return out
	default:
		return v
	}
}

// placeholderOnly reports whether v carries nothing but depth placeholders.
func placeholderOnly(v any) bool {
	switch x := v.(type) {
	case string:
		return x == placeholderArray || x == placeholderObject
	case map[string]any:
		if len(x) == 0 {
			return false
		}
		for _, item := range x {
			if !placeholderOnly(item) {
				return false
			}
		}
		return true
	case []any:
		if len(x) == 0 {
			return false
		}
		for _, item := range x {
			if !placeholderOnly(item) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// updateEntry builds the history record for one changed field.
// ok is false when nothing worth storing remains after sanitizing.
func updateEntry(field string, oldVal, newVal any, changedAt string) (model.HistoryEntry, bool) {
	o := sanitizeHistoryValue(oldVal)
	n := sanitizeHistoryValue(newVal)
	if reflect.DeepEqual(o, n) {
		return model.HistoryEntry{}, false
	}
	oldHollow, newHollow := placeholderOnly(o), placeholderOnly(n)
	if oldHollow && newHollow {
		return model.HistoryEntry{}, false
	}
	if oldHollow {
		o = nil
	}
	if newHollow {
		n = nil
	}
	return model.HistoryEntry{
		Type:      model.HistoryUpdate,
		Field:     field,
		Old:       o,
		New:       n,
		ChangedAt: changedAt,
	}, true
}
