package report

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// IndexFile is the machine-readable summary written next to the HTML report.
const IndexFile = "report.json"

// WriteIndex writes s as JSON to dir/report.json. The file is replaced
// atomically so a reader never sees a partial document.
func WriteIndex(dir string, s Summary) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", writeError("marshal report index", err)
	}

	path := filepath.Join(dir, IndexFile)
	if err := atomicWriteFile(path, data); err != nil {
		return "", writeError("write "+IndexFile, err)
	}
	return path, nil
}

// atomicWriteFile writes to a temp file in the same directory and renames it
// over path.
func atomicWriteFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
