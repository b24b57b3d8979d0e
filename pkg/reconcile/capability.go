package reconcile

import (
	"slices"
	"sort"
	"strings"
)

// capabilityPrefix is the metadata key convention for client-scoped
// capability lists: "capabilities" applies to every client, while
// "capabilities:<clientID>" applies to a single client.
const capabilityPrefix = "capabilities"

// CapabilitiesForClient returns the capability set granted to one client by a
// product, as the union of product-level and plan-level metadata entries.
// Values are comma-separated; entries are whitespace-trimmed, deduplicated,
// and kept in first-seen order with product-level entries first.
func CapabilitiesForClient(clientID string, productMeta, planMeta map[string]string) []string {
	keys := []string{capabilityPrefix, capabilityPrefix + ":" + clientID}

	var caps []string
	for _, meta := range []map[string]string{productMeta, planMeta} {
		for _, key := range keys {
			caps = appendCapabilities(caps, meta[key])
		}
	}
	return caps
}

// AllCapabilities returns the union of every capability granted by a product
// across all clients. Metadata keys are visited in sorted order so the result
// is deterministic; within a key, first-seen order is preserved.
func AllCapabilities(productMeta, planMeta map[string]string) []string {
	var caps []string
	for _, meta := range []map[string]string{productMeta, planMeta} {
		for _, key := range sortedCapabilityKeys(meta) {
			caps = appendCapabilities(caps, meta[key])
		}
	}
	return caps
}

func sortedCapabilityKeys(meta map[string]string) []string {
	keys := make([]string, 0, len(meta))
	for key := range meta {
		if key == capabilityPrefix || strings.HasPrefix(key, capabilityPrefix+":") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func appendCapabilities(caps []string, value string) []string {
	for _, raw := range strings.Split(value, ",") {
		c := strings.TrimSpace(raw)
		if c == "" || slices.Contains(caps, c) {
			continue
		}
		caps = append(caps, c)
	}
	return caps
}
