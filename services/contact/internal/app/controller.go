package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"contactdesk/internal/util"
	"contactdesk/pkg/domain"
)

// ControllerConfig wires a Controller. Confirmer and Dispatcher default to a
// fallback-only Confirmer and LogDispatcher.
type ControllerConfig struct {
	Confirmer  *Confirmer
	Dispatcher Dispatcher
	AdminEmail string
	NoticeTTL  time.Duration
	Now        func() time.Time
}

// Controller owns one contact record and runs its submissions, one at a time.
type Controller struct {
	confirmer  *Confirmer
	dispatcher Dispatcher
	adminEmail string
	now        func() time.Time
	notices    *NoticeBoard

	mu     sync.Mutex
	record domain.ContactRecord
	state  domain.SubmissionState
	busy   bool
}

func NewController(cfg ControllerConfig) *Controller {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	confirmer := cfg.Confirmer
	if confirmer == nil {
		confirmer = NewConfirmer(nil)
	}
	var dispatcher Dispatcher = LogDispatcher{}
	if cfg.Dispatcher != nil {
		dispatcher = cfg.Dispatcher
	}
	return &Controller{
		confirmer:  confirmer,
		dispatcher: dispatcher,
		adminEmail: cfg.AdminEmail,
		now:        now,
		notices:    NewNoticeBoard(cfg.NoticeTTL, now),
		state:      domain.StateIdle,
	}
}

func (c *Controller) SetName(v string)    { c.update(func(r *domain.ContactRecord) { r.Name = v }) }
func (c *Controller) SetEmail(v string)   { c.update(func(r *domain.ContactRecord) { r.Email = v }) }
func (c *Controller) SetMessage(v string) { c.update(func(r *domain.ContactRecord) { r.Message = v }) }

// SetRecord replaces all three fields.
func (c *Controller) SetRecord(rec domain.ContactRecord) {
	c.update(func(r *domain.ContactRecord) { *r = rec })
}

// update is ignored while a submission is generating.
func (c *Controller) update(fn func(*domain.ContactRecord)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return
	}
	fn(&c.record)
}

func (c *Controller) Record() domain.ContactRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record
}

func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Controller) State() domain.SubmissionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Notice returns the live outcome notice, if any.
func (c *Controller) Notice() (Notice, bool) { return c.notices.Current() }

func (c *Controller) DismissNotice() { c.notices.Dismiss() }

// ExpireNotice clears the notice identified by seq if it is still showing.
func (c *Controller) ExpireNotice(seq uint64) bool { return c.notices.Expire(seq) }

func (c *Controller) NoticeTTL() time.Duration { return c.notices.TTL() }

// Submit validates the current record, writes the auto-reply, dispatches the
// payloads and reports the outcome. The returned notice is also shown on the
// controller's notice board. err is a *ValidationError, ErrSubmitInFlight, or
// the wrapped failure behind the generic error notice.
func (c *Controller) Submit(ctx context.Context) (domain.OutcomeNotice, error) {
	return c.run(ctx, nil)
}

// SubmitRecord replaces the record and submits it under the same lock.
func (c *Controller) SubmitRecord(ctx context.Context, rec domain.ContactRecord) (domain.OutcomeNotice, error) {
	return c.run(ctx, &rec)
}

func (c *Controller) run(ctx context.Context, replace *domain.ContactRecord) (notice domain.OutcomeNotice, err error) {
	rec, err := c.begin(replace)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			notice = vErr.Notice()
			c.notices.Show(notice)
		}
		return notice, err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("submission panic: %v", r)
		}
		if err != nil {
			util.LoggerFromContext(ctx).Error("submission failed", "err", err)
			notice = sendFailedNotice()
		} else {
			notice = sentNotice()
		}
		c.settle(err == nil)
		c.notices.Show(notice)
	}()

	err = c.deliver(ctx, rec)
	return notice, err
}

// begin moves idle → validating → generating under the lock.
func (c *Controller) begin(replace *domain.ContactRecord) (domain.ContactRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return domain.ContactRecord{}, ErrSubmitInFlight
	}
	if replace != nil {
		c.record = *replace
	}
	c.state = domain.StateValidating
	if err := Validate(c.record); err != nil {
		c.state = domain.StateIdle
		return domain.ContactRecord{}, err
	}
	c.busy = true
	c.state = domain.StateGenerating
	c.notices.Dismiss()
	return c.record, nil
}

func (c *Controller) deliver(ctx context.Context, rec domain.ContactRecord) error {
	reply := c.confirmer.Write(ctx, rec)
	sub := NewSubmission(rec, reply, c.adminEmail, c.now())
	if err := c.dispatcher.Dispatch(ctx, sub); err != nil {
		return fmt.Errorf("dispatch submission: %w", err)
	}
	util.LoggerFromContext(ctx).Info("contact submission accepted",
		"submission_id", sub.ID, "reply_source", reply.Source)
	return nil
}

func (c *Controller) settle(ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if ok {
		c.record = domain.ContactRecord{}
		c.state = domain.StateSettled
		return
	}
	c.state = domain.StateIdle
}
