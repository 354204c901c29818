package importer

import (
	"path/filepath"
	"regexp"
	"strings"
)

// illegalChars are characters not allowed in filenames on common filesystems.
var illegalChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

var multiSpace = regexp.MustCompile(`\s+`)

// SanitizeFilename makes name safe to use as a single path element.
// Separators and reserved characters become spaces; leading and trailing
// dots are dropped so the result can never be "." or "..".
func SanitizeFilename(name string) string {
	name = illegalChars.ReplaceAllString(name, " ")
	name = multiSpace.ReplaceAllString(name, " ")
	return strings.Trim(name, ". ")
}

// ValidatePath ensures path is root or inside it.
// Returns ErrPathTraversal if the path would escape the root.
func ValidatePath(path, root string) error {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return ErrPathTraversal
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ErrPathTraversal
	}
	return nil
}
