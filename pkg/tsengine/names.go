package tsengine

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// sep is the separator between a series key and its period suffix in the
// rollup tree's fixed-tree names. U+F8FF sits in the Unicode private-use
// area, chosen so it can never collide with a caller-supplied key.
const sep = ""

// periodTreeName formats the fixed-tree name under periods-w for (key, d):
// key + SEP + TypeName + "-" + duration.
func periodTreeName(key string, d PeriodDuration) []byte {
	return []byte(key + sep + d.Type.String() + "-" + strconv.Itoa(d.Duration))
}

// periodTreePrefix is the required-prefix used to enumerate every period
// tree cached for a given key, independent of duration.
func periodTreePrefix(key string) []byte {
	return []byte(key + sep)
}

// parsePeriodSuffix reconstructs the PeriodDuration encoded in a fixed-tree
// name returned while iterating with periodTreePrefix(key) as the required
// prefix.
func parsePeriodSuffix(name []byte) (PeriodDuration, error) {
	idx := bytes.LastIndex(name, []byte(sep))
	if idx < 0 {
		return PeriodDuration{}, fmt.Errorf("tsengine: malformed period tree name %q: missing separator", name)
	}
	suffix := string(name[idx+len(sep):])
	dashIdx := strings.LastIndexByte(suffix, '-')
	if dashIdx < 0 {
		return PeriodDuration{}, fmt.Errorf("tsengine: malformed period tree name %q: missing duration", name)
	}
	typeName, durStr := suffix[:dashIdx], suffix[dashIdx+1:]
	duration, err := strconv.Atoi(durStr)
	if err != nil {
		return PeriodDuration{}, fmt.Errorf("tsengine: malformed period tree name %q: %w", name, err)
	}
	pt, err := parsePeriodType(typeName)
	if err != nil {
		return PeriodDuration{}, err
	}
	return PeriodDuration{Type: pt, Duration: duration}, nil
}

func parsePeriodType(name string) (PeriodType, error) {
	switch name {
	case "Seconds":
		return Seconds, nil
	case "Minutes":
		return Minutes, nil
	case "Hours":
		return Hours, nil
	case "Days":
		return Days, nil
	case "Months":
		return Months, nil
	case "Years":
		return Years, nil
	default:
		return 0, fmt.Errorf("tsengine: unknown period type %q", name)
	}
}
