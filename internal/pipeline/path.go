package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
)

// renderOutputTemplate expands {id}, {title}, and {ext} and confines
// the result to baseDir. Filenames are deterministic: same inputs,
// same path.
func renderOutputTemplate(template, id, title, ext string, baseDir string) (string, error) {
	if template == "" {
		template = "{id}.{ext}"
	}
	replacer := strings.NewReplacer(
		"{id}", sanitize(id),
		"{title}", sanitize(title),
		"{ext}", ext,
	)
	path := filepath.Clean(replacer.Replace(template))
	if filepath.Ext(path) == "" && ext != "" {
		path = path + "." + ext
	}
	return safeOutputPath(path, baseDir)
}

func safeOutputPath(resolved string, baseDir string) (string, error) {
	cleaned := filepath.Clean(resolved)
	if baseDir == "" {
		return cleaned, nil
	}
	if filepath.IsAbs(cleaned) {
		return "", wrapCategory(CategoryFilesystem, fmt.Errorf("absolute output paths are not allowed with output directory %q", baseDir))
	}
	baseClean := filepath.Clean(baseDir)
	combined := filepath.Join(baseClean, cleaned)
	rel, err := filepath.Rel(baseClean, combined)
	if err != nil {
		return "", wrapCategory(CategoryFilesystem, fmt.Errorf("resolve output path relative to %q: %w", baseClean, err))
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", wrapCategory(CategoryFilesystem, fmt.Errorf("output path escapes base directory %q", baseClean))
	}
	return combined, nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"\x00", "",
)

func sanitize(name string) string {
	name = filenameReplacer.Replace(name)
	name = strings.TrimSpace(name)
	if name == "" {
		return "untitled"
	}
	return name
}

func mimeToExt(mime string) string {
	mime, _, _ = strings.Cut(mime, ";")
	_, subtype, ok := strings.Cut(strings.TrimSpace(mime), "/")
	if !ok {
		return "bin"
	}
	switch subtype {
	case "mp4":
		return "mp4"
	case "webm":
		return "webm"
	case "3gpp":
		return "3gp"
	case "quicktime":
		return "mov"
	default:
		return subtype
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(n)/float64(div), "KMGTPE"[exp])
}
