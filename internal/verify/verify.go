// Package verify checks that every generated model file is exported
// by the package barrel file, including types that exported files
// reference transitively.
package verify

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"specsync/internal/config"
	"specsync/internal/logging"
)

var (
	exportPattern = regexp.MustCompile(`export\s+'[^']*?([^/']+\.dart)'`)
	typePattern   = regexp.MustCompile(`(?:sealed class|class|enum)\s+(\w+)`)
)

// Usage records one unexported type referenced from an exported file.
type Usage struct {
	Type   string
	UsedBy string // base name of the exported file
}

// Report is the outcome of a barrel check. Unexported being empty
// means the barrel is complete.
type Report struct {
	ModelFiles int
	Exports    int

	// Unexported lists model files missing from the barrel, sorted.
	Unexported []string

	// TransitiveUses maps an unexported file's base name to the
	// exported-side references to its types. These files should be
	// exported first.
	TransitiveUses map[string][]Usage

	// SuggestedExports are ready-to-paste export directives for the
	// unexported files.
	SuggestedExports []string
}

// Complete reports whether every model file is exported.
func (r *Report) Complete() bool {
	return len(r.Unexported) == 0
}

// Check verifies the barrel file against the models directory. Paths
// in pkg are relative to root.
func Check(root string, pkg *config.Package, logger *logging.Logger) (*Report, error) {
	modelsDir := filepath.Join(root, pkg.ModelsDir)
	barrelPath := filepath.Join(root, pkg.BarrelFile)

	if _, err := os.Stat(modelsDir); err != nil {
		return nil, fmt.Errorf("models directory %s not found, run from the package root: %w", pkg.ModelsDir, err)
	}
	if _, err := os.Stat(barrelPath); err != nil {
		return nil, fmt.Errorf("barrel file %s not found, run from the package root: %w", pkg.BarrelFile, err)
	}

	modelFiles, err := findModelFiles(modelsDir, pkg)
	if err != nil {
		return nil, err
	}

	exports, err := barrelExports(barrelPath)
	if err != nil {
		return nil, err
	}

	logger.Debug("Barrel check inputs", map[string]interface{}{
		"model_files": len(modelFiles),
		"exports":     len(exports),
	})

	report := &Report{
		ModelFiles:     len(modelFiles),
		Exports:        len(exports),
		TransitiveUses: map[string][]Usage{},
	}

	var exported []string
	for _, file := range modelFiles {
		if exports[filepath.Base(file)] {
			exported = append(exported, file)
		} else {
			report.Unexported = append(report.Unexported, file)
		}
	}

	if len(report.Unexported) > 0 {
		if err := collectTransitiveUses(report, exported); err != nil {
			return nil, err
		}
		report.SuggestedExports = suggestExports(root, report.Unexported)
	}

	return report, nil
}

// findModelFiles walks the models directory for source files that the
// barrel is expected to export. Hidden directories, configured skip
// and internal-barrel files, and part files are excluded.
func findModelFiles(modelsDir string, pkg *config.Package) ([]string, error) {
	skip := make(map[string]bool)
	for _, name := range pkg.SkipFiles {
		skip[name] = true
	}
	for _, name := range pkg.InternalBarrelFiles {
		skip[name] = true
	}

	var files []string
	err := filepath.WalkDir(modelsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != modelsDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".dart") || skip[d.Name()] {
			return nil
		}
		part, err := isPartFile(path)
		if err != nil {
			return err
		}
		if !part {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", modelsDir, err)
	}

	sort.Strings(files)
	return files, nil
}

// isPartFile reports whether a source file is compiled as part of
// another library. The first directive line decides: "part of" means
// yes, any import/export/library directive means no.
func isPartFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if strings.HasPrefix(line, "part of") {
			return true, nil
		}
		if strings.HasPrefix(line, "import ") ||
			strings.HasPrefix(line, "export ") ||
			strings.HasPrefix(line, "library ") {
			return false, nil
		}
	}
	return false, scanner.Err()
}

// barrelExports returns the set of file base names the barrel exports.
func barrelExports(barrelPath string) (map[string]bool, error) {
	content, err := os.ReadFile(barrelPath)
	if err != nil {
		return nil, fmt.Errorf("reading barrel file: %w", err)
	}

	exports := make(map[string]bool)
	for _, match := range exportPattern.FindAllStringSubmatch(string(content), -1) {
		exports[match[1]] = true
	}
	return exports, nil
}

// collectTransitiveUses finds unexported types referenced by exported
// files and attaches the usages to the report.
func collectTransitiveUses(report *Report, exported []string) error {
	typeToFile := make(map[string]string)
	for _, file := range report.Unexported {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}
		for _, match := range typePattern.FindAllStringSubmatch(string(content), -1) {
			typeToFile[match[1]] = filepath.Base(file)
		}
	}
	if len(typeToFile) == 0 {
		return nil
	}

	names := sortedKeys(typeToFile)
	for _, file := range exported {
		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}
		text := string(content)
		for _, typeName := range names {
			if regexp.MustCompile(`\b` + regexp.QuoteMeta(typeName) + `\b`).MatchString(text) {
				key := typeToFile[typeName]
				report.TransitiveUses[key] = append(report.TransitiveUses[key], Usage{
					Type:   typeName,
					UsedBy: filepath.Base(file),
				})
			}
		}
	}
	return nil
}

// suggestExports builds export directives relative to the package's
// lib directory when the file sits under one, falling back to the
// path as given.
func suggestExports(root string, unexported []string) []string {
	libDir := filepath.Join(root, "lib")
	suggestions := make([]string, 0, len(unexported))
	for _, file := range unexported {
		target := file
		if rel, err := filepath.Rel(libDir, file); err == nil && !strings.HasPrefix(rel, "..") {
			target = rel
		}
		suggestions = append(suggestions, fmt.Sprintf("export '%s';", filepath.ToSlash(target)))
	}
	return suggestions
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
