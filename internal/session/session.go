// Package session holds the per-lab state a user builds up: selected mode,
// current input, the in-flight submission and the result history.
//
// A session runs at most one submission at a time. Changing the mode or
// input, or closing the session, cancels the pending delay so a result is
// never computed against input the user has already replaced.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ppiankov/cyberlab/internal/catalog"
	"github.com/ppiankov/cyberlab/internal/classify"
	"github.com/ppiankov/cyberlab/internal/delay"
	"github.com/ppiankov/cyberlab/internal/model"
)

var (
	// ErrInFlight is returned when a submission is already pending.
	ErrInFlight = errors.New("session: submission already in flight")
	// ErrCancelled is returned when a pending submission was superseded.
	ErrCancelled = errors.New("session: submission cancelled")
	// ErrClosed is returned for any submit on a closed session.
	ErrClosed = errors.New("session: closed")
)

// State is the session's position in the submit cycle.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
)

// ClassifyFunc produces the verdict for a submission.
type ClassifyFunc func(ctx context.Context, sessionID string, sub model.Submission) (model.Result, error)

// Options configures a LabSession.
type Options struct {
	LogCap int
	Delay  time.Duration
	// ProgressTick drives the fake progress bar. Zero disables it.
	ProgressTick time.Duration
	Classify     ClassifyFunc
	Now          func() time.Time
}

// LabSession is the explicit state of one lab instance.
type LabSession struct {
	id       string
	category model.Category
	opts     Options
	log      *Log

	mu          sync.Mutex
	mode        model.Mode
	input       string
	credentials bool
	file        *model.FileInfo
	busy        bool
	cancel      context.CancelFunc
	progress    *delay.Progress
	last        *model.Result
	closed      bool
}

// New creates an idle session for a lab. An empty mode selects the lab
// default.
func New(id string, cat model.Category, mode model.Mode, opts Options) (*LabSession, error) {
	m, err := model.ValidateMode(cat, mode)
	if err != nil {
		return nil, err
	}
	if opts.Classify == nil {
		return nil, fmt.Errorf("session %s: no classifier", id)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &LabSession{
		id:       id,
		category: cat,
		opts:     opts,
		log:      NewLog(opts.LogCap),
		mode:     m,
	}, nil
}

// ID returns the session identifier.
func (s *LabSession) ID() string { return s.id }

// Category returns the lab this session belongs to.
func (s *LabSession) Category() model.Category { return s.category }

// Log returns the session's history.
func (s *LabSession) Log() *Log { return s.log }

// SetMode switches the lab mode and cancels any pending submission.
func (s *LabSession) SetMode(mode model.Mode) error {
	m, err := model.ValidateMode(s.category, mode)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
	s.cancelPendingLocked()
	return nil
}

// SetInput replaces the input text and cancels any pending submission.
func (s *LabSession) SetInput(input string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = input
	s.cancelPendingLocked()
}

// SetCredentials toggles whether the CORS lab sends cookies.
func (s *LabSession) SetCredentials(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials = on
	s.cancelPendingLocked()
}

// SetFile sets the upload lab's selected file. nil clears it.
func (s *LabSession) SetFile(f *model.FileInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f != nil {
		cp := *f
		f = &cp
	}
	s.file = f
	s.cancelPendingLocked()
}

// SelectPayload copies a catalog payload into the input. Nothing is
// validated; for the upload lab the payload names the selected file.
func (s *LabSession) SelectPayload(e catalog.Entry) {
	sub := e.Submission(s.category)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = sub.Input
	if sub.File != nil {
		s.file = sub.File
	}
	s.cancelPendingLocked()
}

// Submit classifies the current input after the lab's delay. It fails
// with ErrInFlight if a submission is pending and with ErrCancelled if the
// input changes or the session closes before the delay elapses.
func (s *LabSession) Submit(ctx context.Context) (model.Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return model.Result{}, ErrClosed
	}
	if s.busy {
		s.mu.Unlock()
		return model.Result{}, ErrInFlight
	}
	sub := s.submissionLocked()
	runCtx, cancel := context.WithCancel(ctx)
	s.busy = true
	s.cancel = cancel
	if s.category == model.Scanner && s.opts.ProgressTick > 0 {
		s.progress = delay.StartProgress(s.opts.ProgressTick, 5, nil)
	}
	progress := s.progress
	s.mu.Unlock()

	type outcome struct {
		res model.Result
		err error
	}
	out, err := delay.Run(runCtx, s.opts.Delay, func() outcome {
		res, err := s.opts.Classify(runCtx, s.id, sub)
		return outcome{res, err}
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	// The input may have changed after the delay fired but before the lock
	// was retaken; such a result describes input the user no longer has.
	if err == nil {
		err = runCtx.Err()
	}
	s.busy = false
	s.cancel = nil
	cancel()

	if err != nil {
		if progress != nil {
			progress.Abort()
		}
		return model.Result{}, fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	if progress != nil {
		progress.Done()
	}
	if out.err != nil {
		return model.Result{}, out.err
	}

	s.last = &out.res
	s.log.Append(LogEntry{
		Timestamp: s.opts.Now(),
		InputEcho: echo(sub),
		Result:    out.res,
	})
	return out.res, nil
}

// Close cancels any pending submission and rejects further submits.
func (s *LabSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cancelPendingLocked()
}

// Info is a point-in-time view of a session.
type Info struct {
	ID          string          `json:"id"`
	Category    model.Category  `json:"category"`
	Mode        model.Mode      `json:"mode"`
	Input       string          `json:"input"`
	Credentials bool            `json:"credentials,omitempty"`
	File        *model.FileInfo `json:"file,omitempty"`
	State       State           `json:"state"`
	Progress    int             `json:"progress,omitempty"`
	Last        *model.Result   `json:"last,omitempty"`
	LogLen      int             `json:"log_len"`
}

// Snapshot returns the current state.
func (s *LabSession) Snapshot() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := Info{
		ID:          s.id,
		Category:    s.category,
		Mode:        s.mode,
		Input:       s.input,
		Credentials: s.credentials,
		State:       StateIdle,
		LogLen:      s.log.Len(),
	}
	if s.file != nil {
		f := *s.file
		info.File = &f
	}
	if s.busy {
		info.State = StateSubmitting
	}
	if s.progress != nil {
		info.Progress = s.progress.Percent()
	}
	if s.last != nil {
		r := *s.last
		info.Last = &r
	}
	return info
}

func (s *LabSession) submissionLocked() model.Submission {
	sub := model.Submission{
		Category:    s.category,
		Mode:        s.mode,
		Input:       s.input,
		Credentials: s.credentials,
	}
	if s.file != nil {
		f := *s.file
		sub.File = &f
	}
	return sub
}

func (s *LabSession) cancelPendingLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func echo(sub model.Submission) string {
	if sub.Category == model.Upload && sub.File != nil {
		return sub.File.Name
	}
	return classify.Echo(sub.Input)
}
