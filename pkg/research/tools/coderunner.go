package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zaidmukaddam/scira/pkg/clients"
	"github.com/zaidmukaddam/scira/pkg/research"
)

const chartMarker = "__SCIRA_CHART__"

// chartPrelude makes matplotlib figures print as marker lines on stdout,
// both on plt.show() and at interpreter exit.
const chartPrelude = `import atexit as _atexit, base64 as _b64, io as _io, json as _json
try:
    import matplotlib as _mpl
    _mpl.use("Agg")
    import matplotlib.pyplot as _plt

    def _emit_charts(*_args, **_kwargs):
        for _num in _plt.get_fignums():
            _fig = _plt.figure(_num)
            _buf = _io.BytesIO()
            _fig.savefig(_buf, format="png", bbox_inches="tight")
            _ax = _fig.axes[0] if _fig.axes else None
            _chart = {
                "type": "matplotlib",
                "title": (_ax.get_title() if _ax else "") or (_fig._suptitle.get_text() if _fig._suptitle else ""),
                "x_label": _ax.get_xlabel() if _ax else "",
                "y_label": _ax.get_ylabel() if _ax else "",
                "png": _b64.b64encode(_buf.getvalue()).decode(),
            }
            print("` + chartMarker + `" + _json.dumps(_chart), flush=True)
        _plt.close("all")

    _plt.show = _emit_charts
    _atexit.register(_emit_charts)
except ImportError:
    pass
`

// CodeRunner is a research.CodeExecutor that runs Python in a fresh sandbox per call.
type CodeRunner struct {
	Sandbox SandboxProvider
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewCodeRunner(sandbox SandboxProvider) *CodeRunner {
	return &CodeRunner{Sandbox: sandbox, Logger: slog.Default()}
}

// Run always deletes the sandbox it created, whichever way it returns.
func (r *CodeRunner) Run(ctx context.Context, req research.CodeRequest) (*research.CodeExecution, error) {
	if r.Sandbox == nil {
		return nil, ErrNoSandbox
	}

	id, err := r.Sandbox.Create(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := r.Sandbox.Delete(context.WithoutCancel(ctx), id); err != nil {
			r.Logger.Error("Failed to delete sandbox", "sandbox_id", id, "error", err)
		}
	}()

	if len(req.Libraries) > 0 {
		r.Logger.Info("Installing libraries", "sandbox_id", id, "libraries", req.Libraries)
		res, err := r.Sandbox.Exec(ctx, id, "pip install --quiet "+strings.Join(req.Libraries, " "), r.Timeout)
		if err != nil {
			return nil, fmt.Errorf("install libraries: %w", err)
		}
		if res.ExitCode != 0 {
			return nil, fmt.Errorf("install libraries: exit status %d: %s", res.ExitCode, clients.Truncate(res.Result, 1000))
		}
	}

	script := base64.StdEncoding.EncodeToString([]byte(chartPrelude + "\n" + req.Code))
	command := fmt.Sprintf("sh -c 'echo %s | base64 -d > /tmp/main.py && python3 /tmp/main.py'", script)

	r.Logger.Info("Running code", "sandbox_id", id, "title", req.Title)
	res, err := r.Sandbox.Exec(ctx, id, command, r.Timeout)
	if err != nil {
		return nil, err
	}

	stdout, charts := parseCharts(res.Result)
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("exit status %d: %s", res.ExitCode, clients.Truncate(stdout, 2000))
	}
	return &research.CodeExecution{Stdout: stdout, ExitCode: res.ExitCode, Charts: charts}, nil
}

// parseCharts removes chart marker lines from the output and decodes them.
func parseCharts(output string) (string, []research.ChartArtifact) {
	var (
		kept   []string
		charts []research.ChartArtifact
	)
	for _, line := range strings.Split(output, "\n") {
		payload, ok := strings.CutPrefix(strings.TrimRight(line, "\r"), chartMarker)
		if !ok {
			kept = append(kept, line)
			continue
		}
		var chart research.ChartArtifact
		if err := json.Unmarshal([]byte(payload), &chart); err != nil {
			kept = append(kept, line)
			continue
		}
		charts = append(charts, chart)
	}
	return strings.TrimRight(strings.Join(kept, "\n"), "\n"), charts
}
