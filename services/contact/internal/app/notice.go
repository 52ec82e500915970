package app

import (
	"sync"
	"time"

	"contactdesk/pkg/domain"
)

const DefaultNoticeTTL = 5 * time.Second

// Notice is a shown OutcomeNotice with its lifetime. Seq identifies it so a
// late expiry timer cannot clear a newer notice.
type Notice struct {
	domain.OutcomeNotice
	Seq       uint64
	ShownAt   time.Time
	ExpiresAt time.Time
}

// NoticeBoard holds at most one live notice.
type NoticeBoard struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	seq     uint64
	current *Notice
}

func NewNoticeBoard(ttl time.Duration, now func() time.Time) *NoticeBoard {
	if ttl <= 0 {
		ttl = DefaultNoticeTTL
	}
	if now == nil {
		now = time.Now
	}
	return &NoticeBoard{ttl: ttl, now: now}
}

func (b *NoticeBoard) TTL() time.Duration { return b.ttl }

// Show replaces any live notice with n.
func (b *NoticeBoard) Show(n domain.OutcomeNotice) Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	at := b.now()
	shown := Notice{OutcomeNotice: n, Seq: b.seq, ShownAt: at, ExpiresAt: at.Add(b.ttl)}
	b.current = &shown
	return shown
}

// Current returns the live notice, expiring it first if its time has passed.
func (b *NoticeBoard) Current() (Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Notice{}, false
	}
	if !b.now().Before(b.current.ExpiresAt) {
		b.current = nil
		return Notice{}, false
	}
	return *b.current, true
}

// Dismiss clears the live notice immediately.
func (b *NoticeBoard) Dismiss() {
	b.mu.Lock()
	b.current = nil
	b.mu.Unlock()
}

// Expire clears the live notice only if it is still the one identified by seq.
// It reports whether anything was cleared.
func (b *NoticeBoard) Expire(seq uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil || b.current.Seq != seq {
		return false
	}
	b.current = nil
	return true
}
