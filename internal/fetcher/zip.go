package fetcher

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractArchive extracts all files from a ZIP archive to the
// destination directory. Returns the list of extracted file paths.
func ExtractArchive(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
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

// ExtractTabular extracts only the tabular text tables from a SSURGO
// survey archive. WSS archives nest them under <AREASYMBOL>/tabular/.
func ExtractTabular(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	var extracted []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		dir := filepath.Base(filepath.Dir(f.Name))
		if dir != "tabular" || !strings.HasSuffix(f.Name, ".txt") {
			continue
		}
		path, err := extractEntry(f, destDir)
		if err != nil {
			return extracted, err
		}
		extracted = append(extracted, path)
	}

	if len(extracted) == 0 {
		return nil, eris.Errorf("zip: no tabular tables found in %s", zipPath)
	}
	return extracted, nil
}

// ExtractSpatial extracts the spatial layer files (shapefile parts)
// from a SSURGO survey archive.
func ExtractSpatial(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}
	defer r.Close() //nolint:errcheck

	var extracted []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if filepath.Base(filepath.Dir(f.Name)) != "spatial" {
			continue
		}
		path, err := extractEntry(f, destDir)
		if err != nil {
			return extracted, err
		}
		extracted = append(extracted, path)
	}

	if len(extracted) == 0 {
		return nil, eris.Errorf("zip: no spatial layers found in %s", zipPath)
	}
	return extracted, nil
}

// extractEntry extracts a single zip.File into destDir, flattening the
// archive's directory layout. Returns the extracted file path, or
// empty string for directories.
func extractEntry(f *zip.File, destDir string) (string, error) {
	if f.FileInfo().IsDir() {
		return "", nil
	}

	// Flatten: survey archives nest two levels deep and the nesting
	// carries no information once the tables are on disk.
	name := filepath.Base(f.Name)
	destPath := filepath.Join(destDir, name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("zip: illegal path %q", f.Name)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "zip: create directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "zip: open entry")
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrap(err, "zip: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrap(err, "zip: write file")
	}

	return destPath, nil
}
