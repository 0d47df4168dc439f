package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractZIP extracts every file in the archive into destDir and returns the
// extracted paths. Municipal shapefile exports arrive as flat archives; any
// directory structure inside is preserved.
func ExtractZIP(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: open archive")
	}
	defer r.Close() //nolint:errcheck

	var extracted []string
	for _, f := range r.File {
		path, err := extractEntry(f, destDir)
		if err != nil {
			return extracted, err
		}
		if path != "" {
			extracted = append(extracted, path)
		}
	}
	return extracted, nil
}

// FindShapefile returns the first .shp path among extracted files.
func FindShapefile(paths []string) (string, bool) {
	for _, p := range paths {
		if strings.EqualFold(filepath.Ext(p), ".shp") {
			return p, true
		}
	}
	return "", false
}

func extractEntry(f *zip.File, destDir string) (string, error) {
	// Reject entries that escape the destination.
	dest := filepath.Join(destDir, filepath.Clean("/"+f.Name))
	if !strings.HasPrefix(dest, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("fetcher: archive entry %q escapes destination", f.Name)
	}

	if f.FileInfo().IsDir() {
		return "", eris.Wrap(os.MkdirAll(dest, 0o755), "fetcher: create dir")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", eris.Wrap(err, "fetcher: create parent dir")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: open entry %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(dest)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrapf(err, "fetcher: extract %s", f.Name)
	}
	return dest, nil
}
