package indexer

import (
	"fmt"
	"strings"
)

// CollectionName returns the vector collection of a project for an embedding size.
func CollectionName(projectUUID string, dim int) string {
	return fmt.Sprintf("collection_%d_%s", dim, strings.ReplaceAll(projectUUID, "-", "_"))
}
