package app

import (
	"sync"

	"edumind-service/internal/domain"
)

// ScoreFeed fans out submission results to subscribers of a quiz.
type ScoreFeed struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.SubmissionResult]struct{}
}

func NewScoreFeed() *ScoreFeed {
	return &ScoreFeed{subscribers: make(map[string]map[chan domain.SubmissionResult]struct{})}
}

func (f *ScoreFeed) Subscribe(quizID string) (<-chan domain.SubmissionResult, func()) {
	ch := make(chan domain.SubmissionResult, 8)

	f.mu.Lock()
	subs, ok := f.subscribers[quizID]
	if !ok {
		subs = make(map[chan domain.SubmissionResult]struct{})
		f.subscribers[quizID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs, ok := f.subscribers[quizID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(f.subscribers, quizID)
		}
	}
	return ch, cancel
}

// Publish delivers res to every subscriber of quizID. A subscriber that
// is behind loses its oldest pending result.
func (f *ScoreFeed) Publish(quizID string, res domain.SubmissionResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[quizID] {
		select {
		case ch <- res:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- res
		}
	}
}
