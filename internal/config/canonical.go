package config

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Changed reports whether old and next differ once both are reduced to
// canonical form. It is insensitive to:
//   - mapping key order in the on-disk file (Go maps have no inherent order
//     anyway, but the same rule applies recursively to nested values),
//   - list element order in set-like fields (here: ExitCodes),
//   - integer-vs-octal-string spelling of umask,
//   - the "env" field entirely (ignored, same as the original Taskmaster's
//     "_internal"/"env" exclusion — an env-only change does not replace the
//     group, so its instances keep spawning with the env of the snapshot
//     they were built from).
func Changed(old, next ProgramConfig) bool {
	return canonicalJSON(old) != canonicalJSON(next)
}

// canonicalJSON renders a ProgramConfig the way the original's _canonical()
// rendered a raw config dict: every scalar leaf stringified, every list
// sorted after its elements are themselves normalized, every map ordered by
// key. "env" is dropped entirely and "umask" is forced to its string form on
// both sides so integer and octal-string spellings compare equal.
func canonicalJSON(c ProgramConfig) string {
	m := map[string]any{
		"name":         c.Name,
		"cmd":          c.CmdRaw,
		"numprocs":     c.NumProcs,
		"workingdir":   c.WorkingDir,
		"umask":        strconv.FormatInt(int64(c.Umask), 8),
		"stdout":       c.Stdout,
		"stderr":       c.Stderr,
		"user":         c.User,
		"autostart":    c.Autostart,
		"autorestart":  string(c.Autorestart),
		"exitcodes":    intsToAny(c.ExitCodes),
		"startretries": c.StartRetries,
		"starttime":    c.StartTime,
		"stopsignal":   c.StopSignal,
		"stoptime":     c.StopTime,
	}
	b, _ := json.Marshal(normalize(m))
	return string(b)
}

func intsToAny(xs []int) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

// normalize recursively sorts maps by key and lists by their normalized
// stringified form, and stringifies scalar leaves — mirroring the
// original's normalize(v) helper exactly.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(val))
		for _, k := range keys {
			out[k] = normalize(val[k])
		}
		return out
	case []any:
		type entry struct {
			key  string
			item any
		}
		entries := make([]entry, len(val))
		for i, item := range val {
			n := normalize(item)
			b, _ := json.Marshal(n)
			entries[i] = entry{key: string(b), item: n}
		}
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].key < entries[j].key
		})
		rendered := make([]any, len(entries))
		for i, e := range entries {
			rendered[i] = e.item
		}
		return rendered
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		return val
	}
}
