package tools

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaidmukaddam/scira/pkg/research"
)

type fakeSandbox struct {
	createErr error
	results   []*ExecResult
	execErr   error
	commands  []string
	deleted   []string
}

func (f *fakeSandbox) Create(ctx context.Context) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	return "sb-test", nil
}

func (f *fakeSandbox) Exec(ctx context.Context, id, command string, timeout time.Duration) (*ExecResult, error) {
	f.commands = append(f.commands, command)
	if f.execErr != nil {
		return nil, f.execErr
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res, nil
}

func (f *fakeSandbox) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func TestCodeRunnerRun(t *testing.T) {
	sandbox := &fakeSandbox{results: []*ExecResult{
		{ExitCode: 0, Result: "Successfully installed yfinance"},
		{ExitCode: 0, Result: "mean: 4.2\n" + chartMarker + `{"type":"matplotlib","title":"Prices","png":"iVBOR"}` + "\ndone\n"},
	}}
	runner := NewCodeRunner(sandbox)

	exec, err := runner.Run(context.Background(), research.CodeRequest{
		Title:     "Prices",
		Code:      "import yfinance\nprint('mean: 4.2')",
		Libraries: []string{"yfinance"},
	})
	require.NoError(t, err)

	assert.Equal(t, "mean: 4.2\ndone", exec.Stdout)
	require.Len(t, exec.Charts, 1)
	assert.Equal(t, "Prices", exec.Charts[0]["title"])
	assert.Equal(t, "iVBOR", exec.Charts[0]["png"])

	require.Len(t, sandbox.commands, 2)
	assert.Equal(t, "pip install --quiet yfinance", sandbox.commands[0])

	encoded := strings.TrimSuffix(strings.TrimPrefix(sandbox.commands[1], "sh -c 'echo "), " | base64 -d > /tmp/main.py && python3 /tmp/main.py'")
	script, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(script), "print('mean: 4.2')"))
	assert.Contains(t, string(script), chartMarker)

	assert.Equal(t, []string{"sb-test"}, sandbox.deleted)
}

func TestCodeRunnerDeletesSandboxOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		sandbox *fakeSandbox
		want    string
	}{
		{
			name:    "Exec error",
			sandbox: &fakeSandbox{execErr: errors.New("connection reset")},
			want:    "connection reset",
		},
		{
			name:    "Non-zero exit",
			sandbox: &fakeSandbox{results: []*ExecResult{{ExitCode: 1, Result: "Traceback: ZeroDivisionError"}}},
			want:    "ZeroDivisionError",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := NewCodeRunner(tt.sandbox)
			_, err := runner.Run(context.Background(), research.CodeRequest{Code: "print(1/0)"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, []string{"sb-test"}, tt.sandbox.deleted)
		})
	}
}

func TestCodeRunnerCreateFailure(t *testing.T) {
	sandbox := &fakeSandbox{createErr: errors.New("no capacity")}
	_, err := NewCodeRunner(sandbox).Run(context.Background(), research.CodeRequest{Code: "print(1)"})
	assert.ErrorContains(t, err, "no capacity")
	assert.Empty(t, sandbox.deleted)

	_, err = NewCodeRunner(nil).Run(context.Background(), research.CodeRequest{Code: "print(1)"})
	assert.ErrorIs(t, err, ErrNoSandbox)
}

func TestParseChartsKeepsMalformedMarkers(t *testing.T) {
	out, charts := parseCharts("a\n" + chartMarker + "{not json\nb")
	assert.Empty(t, charts)
	assert.Equal(t, "a\n"+chartMarker+"{not json\nb", out)
}
