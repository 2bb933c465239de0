package session

import "strings"

// matchTopic reports whether an MQTT topic filter matches a concrete
// topic name.
//
// Wildcards follow the MQTT specification:
//   - "+" matches exactly one level
//   - "#" matches the remainder of the topic and must be the last level
//
// Filters beginning with a wildcard do not match topics beginning with
// "$" (broker-internal topics such as $SYS).
func matchTopic(filter, topic string) bool {
	if filter == topic {
		return true
	}

	// $-prefixed topics are only matched by filters that name the prefix
	// literally.
	if strings.HasPrefix(topic, "$") &&
		(strings.HasPrefix(filter, "+") || strings.HasPrefix(filter, "#")) {
		return false
	}

	fl := strings.Split(filter, "/")
	tl := strings.Split(topic, "/")

	for i, level := range fl {
		if level == "#" {
			return i == len(fl)-1
		}
		if i >= len(tl) {
			return false
		}
		if level != "+" && level != tl[i] {
			return false
		}
	}
	return len(fl) == len(tl)
}
