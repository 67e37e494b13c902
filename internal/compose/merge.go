package compose

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kurtosis-tech/stacktrace"
)

// SettingsContribution is one layer's settings.json as found on disk.
type SettingsContribution struct {
	LayerName string
	Data      []byte
}

// SettingsResult is the outcome of merging the settings contributions.
type SettingsResult struct {
	Data     []byte // serialized document to write; nil when no layer contributed
	Degraded bool   // true when the verbatim fallback produced Data
	Warning  string // set when Degraded
}

// MergeSettingsDocs folds the contributions, in layer order, through
// DeepMergeJSON. When every contribution parses as a JSON object the result
// is the true deep merge, serialized with sorted keys, two-space
// indentation, and a trailing newline. When any contribution does not parse
// as a JSON object, the merge degrades: the last contribution's bytes are
// returned verbatim and the result carries a warning naming the offending
// layer. No contributions yields a result with nil Data.
func MergeSettingsDocs(contributions []SettingsContribution) (*SettingsResult, error) {
	if len(contributions) == 0 {
		return &SettingsResult{}, nil
	}

	merged := make(map[string]json.RawMessage)
	for _, contribution := range contributions {
		docMap, err := ParseSettingsDoc(contribution.Data)
		if err != nil {
			last := contributions[len(contributions)-1]
			return &SettingsResult{
				Data:     last.Data,
				Degraded: true,
				Warning: fmt.Sprintf(
					"settings.json from layer '%s' is not a JSON object; using settings.json from layer '%s' verbatim and dropping settings from all other layers",
					contribution.LayerName, last.LayerName),
			}, nil
		}

		result, err := DeepMergeJSON(merged, docMap)
		if err != nil {
			return nil, stacktrace.Propagate(err, "failed to merge settings from layer '%s'", contribution.LayerName)
		}
		merged = result
	}

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return nil, stacktrace.Propagate(err, "failed to marshal merged settings")
	}
	return &SettingsResult{Data: append(data, '\n')}, nil
}

// ParseSettingsDoc parses a settings document and requires it to be a JSON
// object. A document of the literal "null" unmarshals to a nil map with no
// error, which is not a mergeable object either.
func ParseSettingsDoc(data []byte) (map[string]json.RawMessage, error) {
	var docMap map[string]json.RawMessage
	if err := json.Unmarshal(data, &docMap); err != nil {
		return nil, stacktrace.Propagate(err, "failed to parse settings document")
	}
	if docMap == nil {
		return nil, stacktrace.NewError("settings document is not a JSON object")
	}
	return docMap, nil
}

// DeepMergeJSON recursively merges overlay into base. Objects are merged
// key-by-key, arrays are concatenated (base first) and then deduplicated by
// JSON value equality keeping each first occurrence, a null overlay value
// leaves the base value untouched, and any other combination is won
// outright by the overlay value.
func DeepMergeJSON(base map[string]json.RawMessage, overlay map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	result := make(map[string]json.RawMessage, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, overlayVal := range overlay {
		if isJSONNull(overlayVal) {
			continue
		}

		baseVal, exists := result[k]
		if !exists {
			result[k] = overlayVal
			continue
		}

		// Try to treat both as objects
		var baseObj map[string]json.RawMessage
		var overlayObj map[string]json.RawMessage
		baseObjErr := json.Unmarshal(baseVal, &baseObj)
		overlayObjErr := json.Unmarshal(overlayVal, &overlayObj)

		if baseObjErr == nil && overlayObjErr == nil && baseObj != nil && overlayObj != nil {
			mergedObj, err := DeepMergeJSON(baseObj, overlayObj)
			if err != nil {
				return nil, stacktrace.Propagate(err, "failed to deep-merge key '%s'", k)
			}
			mergedData, err := json.Marshal(mergedObj)
			if err != nil {
				return nil, stacktrace.Propagate(err, "failed to marshal merged key '%s'", k)
			}
			result[k] = json.RawMessage(mergedData)
			continue
		}

		// Try to treat both as arrays
		var baseArr []json.RawMessage
		var overlayArr []json.RawMessage
		baseArrErr := json.Unmarshal(baseVal, &baseArr)
		overlayArrErr := json.Unmarshal(overlayVal, &overlayArr)

		if baseArrErr == nil && overlayArrErr == nil && baseArr != nil && overlayArr != nil {
			mergedArr, err := mergeArrays(baseArr, overlayArr)
			if err != nil {
				return nil, stacktrace.Propagate(err, "failed to merge arrays for key '%s'", k)
			}
			concatData, err := json.Marshal(mergedArr)
			if err != nil {
				return nil, stacktrace.Propagate(err, "failed to marshal merged arrays for key '%s'", k)
			}
			result[k] = json.RawMessage(concatData)
			continue
		}

		// Scalar or type mismatch: overlay wins
		result[k] = overlayVal
	}

	return result, nil
}

// mergeArrays concatenates base then overlay and drops duplicate values,
// keeping each value's first occurrence.
func mergeArrays(baseArr []json.RawMessage, overlayArr []json.RawMessage) ([]json.RawMessage, error) {
	seen := make(map[string]bool, len(baseArr)+len(overlayArr))
	result := make([]json.RawMessage, 0, len(baseArr)+len(overlayArr))

	combined := make([]json.RawMessage, 0, len(baseArr)+len(overlayArr))
	combined = append(combined, baseArr...)
	combined = append(combined, overlayArr...)

	for _, elem := range combined {
		key, err := canonicalValueKey(elem)
		if err != nil {
			return nil, err
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, elem)
	}
	return result, nil
}

// canonicalValueKey normalizes a JSON value (unmarshal then marshal) so that
// whitespace and object key order do not affect equality.
func canonicalValueKey(raw json.RawMessage) (string, error) {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", stacktrace.Propagate(err, "failed to parse array element for deduplication")
	}
	normalized, err := json.Marshal(parsed)
	if err != nil {
		return "", stacktrace.Propagate(err, "failed to normalize array element")
	}
	return string(normalized), nil
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
