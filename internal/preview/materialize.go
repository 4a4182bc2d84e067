/* Package preview turns a deck into the remark HTML page the browser loads. */
package preview

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Marker is the closing tag of the element holding the deck source.
const Marker = "</textarea>"

// ArtifactName is the file name of the published page inside the output
// directory.
const ArtifactName = "index.html"

// ErrMarkerNotFound is returned for a template without Marker.
var ErrMarkerNotFound = errors.New("preview: template has no " + Marker + " marker")

//go:embed template.html
var defaultTemplate string

// DefaultTemplate returns the embedded remark page template.
func DefaultTemplate() string {
	return defaultTemplate
}

// LoadTemplate reads the template at path, or returns the embedded template
// when path is empty.
func LoadTemplate(path string) (string, error) {
	if path == "" {
		return defaultTemplate, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read template: %w", err)
	}
	if !strings.Contains(string(data), Marker) {
		return "", fmt.Errorf("%s: %w", path, ErrMarkerNotFound)
	}
	return string(data), nil
}

// Materialize splices document into template right before the first Marker.
// The rest of the template is left untouched.
func Materialize(template, document string) (string, error) {
	i := strings.Index(template, Marker)
	if i < 0 {
		return "", ErrMarkerNotFound
	}
	var b strings.Builder
	b.Grow(len(template) + len(document))
	b.WriteString(template[:i])
	b.WriteString(document)
	b.WriteString(template[i:])
	return b.String(), nil
}

// Publish overwrites the file at outputPath with artifact. Symbolic links are
// resolved first so the real file is always the one written. It returns the
// resolved path.
func Publish(artifact, outputPath string) (string, error) {
	resolved, err := filepath.EvalSymlinks(outputPath)
	if errors.Is(err, fs.ErrNotExist) {
		resolved = outputPath
	} else if err != nil {
		return "", fmt.Errorf("resolve %s: %w", outputPath, err)
	}

	if err := os.WriteFile(resolved, []byte(artifact), 0o644); err != nil {
		return "", fmt.Errorf("write preview: %w", err)
	}
	return resolved, nil
}

// OutputPath returns the artifact path inside dir.
func OutputPath(dir string) string {
	return filepath.Join(dir, ArtifactName)
}
