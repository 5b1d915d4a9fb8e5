package solver

import (
	"fmt"
	"strings"

	"github.com/bpabel/rez/repo"
)

type failedCandidate struct {
	v *repo.Variant
	f error
}

// candidateQueue walks the candidates of one scope, front to back,
// recording why each rejected candidate was eliminated. The fail reasons
// feed conflict reporting when the queue exhausts.
type candidateQueue struct {
	name   string
	pi     []*repo.Variant
	fails  []failedCandidate
	failed bool
}

func newCandidateQueue(name string, candidates []*repo.Variant) *candidateQueue {
	return &candidateQueue{
		name: name,
		pi:   append([]*repo.Variant(nil), candidates...),
	}
}

func (cq *candidateQueue) current() *repo.Variant {
	if len(cq.pi) > 0 {
		return cq.pi[0]
	}
	return nil
}

// advance moves past the current candidate, recording the failure that
// eliminated it.
func (cq *candidateQueue) advance(fail error) {
	if len(cq.pi) == 0 {
		return
	}
	cq.fails = append(cq.fails, failedCandidate{v: cq.pi[0], f: fail})
	cq.pi = cq.pi[1:]
	// The current candidate may have failed, but the next one hasn't yet.
	cq.failed = false
}

func (cq *candidateQueue) isExhausted() bool {
	return len(cq.pi) == 0
}

func (cq *candidateQueue) String() string {
	var vs []string
	for _, v := range cq.pi {
		vs = append(vs, v.Version.String())
	}
	return fmt.Sprintf("[%s]", strings.Join(vs, ", "))
}
