package research

import (
	"regexp"
	"strings"
)

// preinstalled lists the top-level modules already present in the sandbox image,
// stdlib included.
var preinstalled = map[string]bool{
	// third party
	"numpy": true, "pandas": true, "matplotlib": true, "scipy": true, "seaborn": true,
	"requests": true, "sklearn": true, "plotly": true, "sympy": true,
	// stdlib
	"abc": true, "array": true, "asyncio": true, "base64": true, "bisect": true,
	"calendar": true, "cmath": true, "collections": true, "concurrent": true,
	"contextlib": true, "copy": true, "csv": true, "dataclasses": true, "datetime": true,
	"decimal": true, "email": true, "enum": true, "fractions": true, "functools": true,
	"glob": true, "gzip": true, "hashlib": true, "heapq": true, "html": true, "http": true,
	"inspect": true, "io": true, "itertools": true, "json": true, "logging": true,
	"math": true, "multiprocessing": true, "numbers": true, "operator": true, "os": true,
	"pathlib": true, "pickle": true, "pprint": true, "queue": true, "random": true,
	"re": true, "secrets": true, "shutil": true, "sqlite3": true, "statistics": true,
	"string": true, "struct": true, "subprocess": true, "sys": true, "tempfile": true,
	"textwrap": true, "threading": true, "time": true, "traceback": true, "types": true,
	"typing": true, "unicodedata": true, "urllib": true, "uuid": true, "warnings": true,
	"xml": true, "zipfile": true, "__future__": true,
}

// pipNames maps import names whose distribution is published under another name.
var pipNames = map[string]string{
	"sklearn":  "scikit-learn",
	"PIL":      "pillow",
	"cv2":      "opencv-python",
	"bs4":      "beautifulsoup4",
	"yaml":     "pyyaml",
	"dateutil": "python-dateutil",
}

var (
	importLine = regexp.MustCompile(`^import\s+(.+)$`)
	fromLine   = regexp.MustCompile(`^from\s+([A-Za-z_][\w.]*)\s+import\s+`)
)

// MissingLibraries scans Python source for imported packages that are not
// preinstalled and returns their pip names in first-seen order.
func MissingLibraries(code string) []string {
	var libs []string
	seen := make(map[string]bool)

	add := func(module string) {
		top := strings.SplitN(strings.TrimSpace(module), ".", 2)[0]
		if top == "" || preinstalled[top] {
			return
		}
		name := top
		if pip, ok := pipNames[top]; ok {
			name = pip
		}
		if !seen[name] {
			seen[name] = true
			libs = append(libs, name)
		}
	}

	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if i := strings.Index(line, "#"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if m := fromLine.FindStringSubmatch(line); m != nil {
			add(m[1])
			continue
		}
		if m := importLine.FindStringSubmatch(line); m != nil {
			for _, part := range strings.Split(m[1], ",") {
				fields := strings.Fields(part)
				if len(fields) > 0 {
					add(fields[0])
				}
			}
		}
	}
	return libs
}
