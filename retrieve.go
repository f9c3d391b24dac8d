package estatement

import (
	"context"
	"os"
	"path/filepath"
)

// retrieve downloads the statement for one period. The statement page must
// already be loaded.
func (s *session) retrieve(ctx context.Context, period Period) (Artifact, error) {
	p := s.cfg.portal

	if err := s.act(ctx, "waiting for account selector", func(ctx context.Context) error {
		return s.page.WaitVisible(ctx, p.accountSelect())
	}); err != nil {
		return Artifact{}, err
	}

	var (
		value string
		found bool
	)
	if err := s.act(ctx, "finding account", func(ctx context.Context) error {
		var err error
		value, found, err = s.page.OptionValue(ctx, p.AccountSelectID, s.d.account)
		return err
	}); err != nil {
		return Artifact{}, err
	}
	if !found {
		return Artifact{}, &Error{Kind: KindElementNotFound, Message: "No account no " + s.d.account}
	}

	steps := []struct {
		what string
		fn   func(context.Context) error
	}{
		{"selecting account", func(ctx context.Context) error { return s.page.Select(ctx, p.accountSelect(), value) }},
		{"waiting for month selector", func(ctx context.Context) error { return s.page.WaitVisible(ctx, p.MonthSelect) }},
		{"selecting month", func(ctx context.Context) error { return s.page.Select(ctx, p.MonthSelect, period.MonthValue()) }},
		{"waiting for year selector", func(ctx context.Context) error { return s.page.WaitVisible(ctx, p.YearSelect) }},
		{"selecting year", func(ctx context.Context) error { return s.page.Select(ctx, p.YearSelect, period.YearValue()) }},
	}
	for _, st := range steps {
		if err := s.act(ctx, st.what, st.fn); err != nil {
			return Artifact{}, err
		}
	}

	s.cfg.progress(Event{Kind: EventDownloading, Period: period})
	path, err := s.download(ctx)
	if err != nil {
		return Artifact{}, err
	}
	s.log.Info("statement downloaded", "period", period.String(), "path", path)
	s.cfg.progress(Event{Kind: EventDownloaded, Period: period, Path: path})

	a := Artifact{
		Period:   period,
		Filename: filepath.Base(path),
		Path:     path,
	}
	if s.cfg.converter != nil {
		a.TextPath = s.convert(ctx, period, path)
	}
	s.record(ctx, a)
	return a, nil
}

// download triggers the download for the selected period, waits for it to
// complete in a fresh staging directory and moves it to the target
// directory.
func (s *session) download(ctx context.Context) (string, error) {
	staging, err := os.MkdirTemp("", "estatement-")
	if err != nil {
		return "", fsError("creating staging directory", err)
	}
	defer os.RemoveAll(staging)

	btn := s.cfg.portal.DownloadButton
	steps := []struct {
		what string
		fn   func(context.Context) error
	}{
		{"configuring downloads", func(ctx context.Context) error { return s.page.SetDownloadDir(ctx, staging) }},
		{"waiting for download button", func(ctx context.Context) error { return s.page.WaitVisible(ctx, btn) }},
		{"starting download", func(ctx context.Context) error { return s.page.Click(ctx, btn) }},
	}
	for _, st := range steps {
		if err := s.act(ctx, st.what, st.fn); err != nil {
			return "", err
		}
	}

	name, err := WaitForDownload(ctx, staging, s.cfg.pollInterval, s.cfg.timeout)
	if err != nil {
		return "", err
	}

	dst := filepath.Join(s.dir, name)
	if err := moveFile(filepath.Join(staging, name), dst); err != nil {
		return "", err
	}
	if err := os.Remove(staging); err != nil {
		return "", fsError("removing staging directory", err)
	}
	return dst, nil
}

// convert writes the text version of the statement at path and returns its
// location. Conversion problems are reported as warnings and do not fail
// the run.
func (s *session) convert(ctx context.Context, period Period, path string) string {
	txt := TextPath(path)
	s.cfg.progress(Event{Kind: EventConverting, Period: period, Path: path})
	if err := s.cfg.converter.Convert(ctx, path, txt); err != nil {
		s.log.Warn("converting statement failed", "path", path, "error", err)
		s.cfg.progress(Event{Kind: EventWarning, Period: period, Path: path, Message: err.Error()})
		return ""
	}
	s.cfg.progress(Event{Kind: EventConverted, Period: period, Path: txt})
	return txt
}

func (s *session) record(ctx context.Context, a Artifact) {
	if s.cfg.recorder == nil {
		return
	}
	err := s.cfg.recorder.Record(ctx, Record{
		RunID:        s.runID,
		Account:      s.d.account,
		Period:       a.Period,
		Path:         a.Path,
		TextPath:     a.TextPath,
		DownloadedAt: s.cfg.now(),
	})
	if err != nil {
		s.log.Warn("recording statement failed", "path", a.Path, "error", err)
		s.cfg.progress(Event{Kind: EventWarning, Period: a.Period, Path: a.Path, Message: err.Error()})
	}
}
