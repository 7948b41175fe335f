package reconcile

import (
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/maxtico/assess-annotation/internal/genome"
)

// WorkItem holds the joined records of one candidate ready for classification.
type WorkItem struct {
	Seq         int
	CandidateID string
	Records     []OverlapRecord
	Markers     []genome.Interval // the candidate's Selenocysteine intervals
}

// WorkResult holds the classification output for a single candidate.
type WorkResult struct {
	Seq         int
	CandidateID string
	Detailed    []Row
	Aggregate   Row
	Aggregated  bool // false when the candidate produced no rows
	Err         error
}

// ParallelClassify fans candidates out to a fixed pool of workers. Results
// arrive in completion order; OrderedCollect restores input order.
// A non-positive worker count means one worker per CPU.
func (e *Engine) ParallelClassify(items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	e.logger.Debug("starting classification workers", zap.Int("workers", workers))

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				results <- classifyCandidate(item)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

func classifyCandidate(item WorkItem) WorkResult {
	res := WorkResult{Seq: item.Seq, CandidateID: item.CandidateID}

	var verdicts []Verdict
	for _, p := range Partitions(item.Records) {
		v, err := ClassifyPartition(p, item.Markers)
		if err != nil {
			res.Err = err
			return res
		}
		verdicts = append(verdicts, v...)
	}

	res.Detailed = Hierarchy(verdicts)
	res.Aggregate, res.Aggregated = Aggregate(res.Detailed)
	return res
}

// OrderedCollect hands results to fn by ascending Seq, holding early
// arrivals until their turn. It returns once results is closed, or after
// draining it when fn fails.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
