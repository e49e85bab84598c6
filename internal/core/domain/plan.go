package domain

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// PlanID derives a short stable identifier from an ordered list of nodes.
// Identical inputs in identical order always produce the same identifier.
func PlanID(nodes []Node) string {
	hasher := xxhash.New()
	for _, n := range nodes {
		_, _ = hasher.Write([]byte{byte(n.Kind)})
		_, _ = hasher.WriteString(n.ID.String())
		_, _ = hasher.Write([]byte{0}) // Separator
	}
	return fmt.Sprintf("%016x", hasher.Sum64())
}
