package views

import (
	"sync"

	"github.com/talentiave/cms/internal/domain/model"
)

const defaultSnapshotCapacity = 1024

// listSnapshots remembers the last talent page each session was shown, so a
// status change can be applied to it without loading the page again. The
// oldest session is evicted once capacity is reached.
type listSnapshots struct {
	mu    sync.Mutex
	max   int
	order []string
	byID  map[string]TalentListState
}

func newListSnapshots(max int) *listSnapshots {
	return &listSnapshots{max: max, byID: make(map[string]TalentListState)}
}

func (l *listSnapshots) put(sessionID string, s TalentListState) {
	s.Talents = append([]model.Talent(nil), s.Talents...)
	s.Flash = ""

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.byID[sessionID]; !ok {
		if len(l.order) >= l.max {
			delete(l.byID, l.order[0])
			l.order = l.order[1:]
		}
		l.order = append(l.order, sessionID)
	}
	l.byID[sessionID] = s
}

// setFeatured flips one row of the session's snapshot and returns a copy of
// the result. It reports false when the session has no snapshot holding id.
func (l *listSnapshots) setFeatured(sessionID string, id int64, featured bool) (TalentListState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.byID[sessionID]
	if !ok {
		return TalentListState{}, false
	}
	s.Talents = append([]model.Talent(nil), s.Talents...)
	if !s.SetFeatured(id, featured) {
		return TalentListState{}, false
	}
	l.byID[sessionID] = s

	out := s
	out.Talents = append([]model.Talent(nil), s.Talents...)
	return out, true
}
