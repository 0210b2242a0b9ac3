package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/DeclanJeon/autostory-sub001/internal/generate"
	"github.com/DeclanJeon/autostory-sub001/internal/pipeline"
	logx "github.com/DeclanJeon/autostory-sub001/pkg/logx"
)

// Local implements pipeline.Authenticator and pipeline.Publisher by writing
// rendered posts into a per-platform directory tree. It stands in for the
// browser-automation posting flows, which live outside this module.
//
// Layout:
//
//	<outdir>/<platform>/<slug>.html           published posts
//	<outdir>/<platform>/reserved/<date>-<slug>.html  quota-deferred posts
type Local struct {
	outDir string
	clock  func() time.Time
	log    logx.Logger
}

func NewLocal(outDir string, log logx.Logger) (*Local, error) {
	if outDir == "" {
		return nil, errors.New("publish output dir is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Local{outDir: outDir, clock: time.Now, log: log}, nil
}

// SetClock overrides the publisher's clock. Test hook.
func (l *Local) SetClock(now func() time.Time) {
	if now != nil {
		l.clock = now
	}
}

// CheckAuth always succeeds: the local tree needs no session.
func (l *Local) CheckAuth(ctx context.Context, platform string) (bool, error) {
	_ = ctx
	_ = platform
	return true, nil
}

func (l *Local) Login(ctx context.Context, platform string) error {
	_ = ctx
	_ = platform
	return nil
}

func (l *Local) Publish(ctx context.Context, platform string, d pipeline.Draft) (pipeline.PostResult, error) {
	_ = ctx
	dir := filepath.Join(l.outDir, platform)
	path, err := l.write(dir, generate.Slugify(d.Title)+".html", d)
	if err != nil {
		return pipeline.PostResult{}, err
	}
	l.log.Info("post written", logx.String("platform", platform), logx.String("path", path))
	return pipeline.PostResult{URL: "file://" + path}, nil
}

// Reserve defers the post to the next day: same rendering, parked under
// reserved/ with the target date in the name.
func (l *Local) Reserve(ctx context.Context, platform string, d pipeline.Draft) (pipeline.PostResult, error) {
	_ = ctx
	when := l.clock().AddDate(0, 0, 1)
	dir := filepath.Join(l.outDir, platform, "reserved")
	name := fmt.Sprintf("%s-%s.html", when.Format("2006-01-02"), generate.Slugify(d.Title))
	path, err := l.write(dir, name, d)
	if err != nil {
		return pipeline.PostResult{}, err
	}
	l.log.Info("post reserved", logx.String("platform", platform), logx.String("path", path), logx.Time("for", when))
	return pipeline.PostResult{URL: "file://" + path, ReservedFor: when}, nil
}

func (l *Local) write(dir, name string, d pipeline.Draft) (string, error) {
	html, err := d.HTML()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	doc := "<!doctype html>\n<html><head><meta charset=\"utf-8\"><title>" +
		d.Title + "</title></head><body>\n" + html + "\n</body></html>\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
