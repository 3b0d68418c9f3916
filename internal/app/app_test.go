package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"blkmsg/internal/config"
	"blkmsg/internal/contact"
	"blkmsg/internal/dispatch"
	"blkmsg/internal/driver"
	"blkmsg/internal/driver/chrome"
	logx "blkmsg/pkg/logx"
)

type simClock struct{ now time.Time }

func (c *simClock) Now() time.Time { return c.now }

func (c *simClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.now = c.now.Add(max(d, 0))
	return nil
}

type firstRand struct{}

func (firstRand) IntN(int) int { return 0 }

type element struct{ typed strings.Builder }

func (e *element) Clear(context.Context) error                     { return nil }
func (e *element) SendKeys(_ context.Context, s string) error      { e.typed.WriteString(s); return nil }
func (e *element) SendSpecialKey(context.Context, driver.Key) error { return nil }
func (e *element) SoftNewline(context.Context) error               { e.typed.WriteString("\n"); return nil }

type stubDriver struct {
	started, stopped bool
	startErr         error
	search, compose  element
	composeWaits     int
	failComposeAt    int
}

func (d *stubDriver) Start(context.Context) error { d.started = true; return d.startErr }
func (d *stubDriver) Stop() error                 { d.stopped = true; return nil }

func (d *stubDriver) Navigate(context.Context, string) error { return nil }

func (d *stubDriver) Locate(context.Context, string) (driver.Element, error) {
	return &d.search, nil
}

func (d *stubDriver) WaitUntilPresent(_ context.Context, sel string, _ time.Duration) (driver.Element, error) {
	if sel != config.DefaultComposeSelector {
		return &d.search, nil
	}
	d.composeWaits++
	if d.composeWaits == d.failComposeAt {
		return nil, driver.ErrTimeout
	}
	return &d.compose, nil
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// setup writes a config with one good and one missing template.
func setup(t *testing.T, templateBody string) (cfgPath, reportDir string) {
	t.Helper()
	dir := t.TempDir()
	reportDir = filepath.Join(dir, "reports")
	writeFile(t, filepath.Join(dir, "contacts.csv"), "Asha,98765 43210\nRavi,919123456789\n")
	writeFile(t, filepath.Join(dir, "t1.md"), templateBody)
	cfgPath = filepath.Join(dir, "blkmsg.yaml")
	writeFile(t, cfgPath, `
contacts:
  path: `+filepath.Join(dir, "contacts.csv")+`
templates:
  paths:
    - `+filepath.Join(dir, "t1.md")+`
    - `+filepath.Join(dir, "missing.md")+`
typing:
  per_char: 10ms
search:
  key_delay: 1ms
cooldown:
  min_seconds: 2
  max_seconds: 2
schedule:
  start_at: "@daily"
report:
  dir: `+reportDir+`
logging:
  level: error
`)
	return cfgPath, reportDir
}

func newTestApp(t *testing.T, cfgPath string, drv *stubDriver) (*App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	a, err := New(cfgPath, &out)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	a.clock = &simClock{now: time.Unix(1_700_000_000, 0)}
	a.rand = firstRand{}
	a.newDriver = func(chrome.Config, logx.Logger) driver.Driver { return drv }
	return a, &out
}

func TestRunBatch(t *testing.T) {
	cfgPath, reportDir := setup(t, "Hi {name}!\nSee you.")
	drv := &stubDriver{failComposeAt: 2}
	a, out := newTestApp(t, cfgPath, drv)

	sum, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := sum.Outcomes(), []dispatch.Outcome{dispatch.OutcomeSent, dispatch.OutcomeFailed}; !reflect.DeepEqual(got, want) {
		t.Fatalf("outcomes = %v, want %v", got, want)
	}
	if st := sum.StartedAt; st.Hour() != 0 || st.Minute() != 0 {
		t.Fatalf("batch started at %v, want the scheduled midnight", st)
	}
	if !drv.started || !drv.stopped {
		t.Fatalf("driver started=%v stopped=%v", drv.started, drv.stopped)
	}
	if got := drv.compose.typed.String(); got != "Hi Asha!\nSee you." {
		t.Fatalf("typed message = %q", got)
	}
	if !strings.HasPrefix(drv.search.typed.String(), "919876543210") {
		t.Fatalf("search typed = %q", drv.search.typed.String())
	}

	console := out.String()
	for _, want := range []string{"batch " + a.BatchID(), "missing.md: MISSING", "[1/2] Sending to Asha", "FAILED", "1 sent, 1 failed"} {
		if !strings.Contains(console, want) {
			t.Fatalf("console missing %q:\n%s", want, console)
		}
	}

	rows, err := contact.ReadCSVFile(filepath.Join(reportDir, a.BatchID()+".residual.csv"))
	if err != nil {
		t.Fatalf("residual: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Ravi" || rows[0].RawNumber != "919123456789" {
		t.Fatalf("residual rows = %+v", rows)
	}
}

func TestRunFatalBeforeSession(t *testing.T) {
	t.Run("no usable template", func(t *testing.T) {
		cfgPath, _ := setup(t, "   \n")
		drv := &stubDriver{}
		a, _ := newTestApp(t, cfgPath, drv)
		_, err := a.Run(context.Background())
		if !errors.Is(err, config.ErrConfiguration) {
			t.Fatalf("err = %v, want ErrConfiguration", err)
		}
		if drv.started {
			t.Fatalf("driver started despite fatal config")
		}
	})

	t.Run("missing contacts", func(t *testing.T) {
		cfgPath, _ := setup(t, "Hi {name}")
		if err := os.Remove(filepath.Join(filepath.Dir(cfgPath), "contacts.csv")); err != nil {
			t.Fatal(err)
		}
		drv := &stubDriver{}
		a, _ := newTestApp(t, cfgPath, drv)
		_, err := a.Run(context.Background())
		if !errors.Is(err, config.ErrConfiguration) {
			t.Fatalf("err = %v, want ErrConfiguration", err)
		}
		if drv.started {
			t.Fatalf("driver started despite missing contacts")
		}
	})

	t.Run("browser start fails", func(t *testing.T) {
		cfgPath, _ := setup(t, "Hi {name}")
		drv := &stubDriver{startErr: errors.New("no chrome")}
		a, _ := newTestApp(t, cfgPath, drv)
		_, err := a.Run(context.Background())
		if !errors.Is(err, ErrSession) {
			t.Fatalf("err = %v, want ErrSession", err)
		}
	})
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "bad.yaml")
	writeFile(t, p, "contacts:\n  path: x.csv\ntemplates:\n  paths: [a.md]\nbogus: 1\n")
	if _, err := New(p, &bytes.Buffer{}); !errors.Is(err, config.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}
