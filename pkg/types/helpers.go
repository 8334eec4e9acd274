package types

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GenerateExecutionID creates a unique execution identifier using
// crypto/rand, falling back to a timestamp if the OS random source fails.
func GenerateExecutionID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("exec_%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}

func splitPath(path string) []string {
	return strings.Split(path, ".")
}

// GetPath reads a dot-notation path out of a nested map/slice structure.
// Returns (value, true) if every segment resolved, (nil, false) otherwise.
func GetPath(root interface{}, path string) (interface{}, bool) {
	if path == "" {
		return root, true
	}
	cur := root
	for _, seg := range splitPath(path) {
		switch node := cur.(type) {
		case map[string]interface{}:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []interface{}:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// SetPath writes value at a dot-notation path into root, creating
// intermediate map levels as needed. root must be a map[string]interface{}.
func SetPath(root map[string]interface{}, path string, value interface{}) {
	segs := splitPath(path)
	cur := root
	for i, seg := range segs {
		if i == len(segs)-1 {
			cur[seg] = value
			return
		}
		next, ok := cur[seg].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			cur[seg] = next
		}
		cur = next
	}
}

// DeletePath removes the value at a dot-notation path from root. No-op if
// any intermediate segment is absent.
func DeletePath(root map[string]interface{}, path string) {
	segs := splitPath(path)
	cur := root
	for i, seg := range segs {
		if i == len(segs)-1 {
			delete(cur, seg)
			return
		}
		next, ok := cur[seg].(map[string]interface{})
		if !ok {
			return
		}
		cur = next
	}
}
