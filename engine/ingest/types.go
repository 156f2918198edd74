package ingest

import (
	"fmt"
	"sort"

	"github.com/winehub/winehub/engine/wine"
)

// Batch is one contiguous slice of raw input lines, identified by its
// position in the file.
type Batch struct {
	Index int
	Raw   [][]byte
}

// BatchReport is the per-batch accounting the coordinator produces.
// Batches fail independently; a failed batch names the id range it
// covered so the run can be repaired by re-submitting just that range.
type BatchReport struct {
	Index      int    `json:"index"`
	FirstID    int    `json:"first_id"`
	LastID     int    `json:"last_id"`
	Attempted  int    `json:"attempted"`
	Ingested   int    `json:"ingested"`
	Dropped    int    `json:"dropped"`
	DroppedIDs []int  `json:"dropped_ids,omitempty"`
	Err        error  `json:"-"`
	ErrMsg     string `json:"error,omitempty"`
}

// Failed reports whether the batch submission failed.
func (r BatchReport) Failed() bool { return r.Err != nil }

// Report aggregates the whole run.
type Report struct {
	Batches   int
	Attempted int
	Ingested  int
	Dropped   int
	FailedB   []BatchReport
}

func (rep *Report) add(br BatchReport) {
	rep.Batches++
	rep.Attempted += br.Attempted
	rep.Dropped += br.Dropped
	if br.Failed() {
		rep.FailedB = append(rep.FailedB, br)
	} else {
		rep.Ingested += br.Ingested
	}
}

// Summary renders the final accounting line for the CLI.
func (rep Report) Summary() string {
	s := fmt.Sprintf("batches=%d attempted=%d ingested=%d dropped=%d failed_batches=%d",
		rep.Batches, rep.Attempted, rep.Ingested, rep.Dropped, len(rep.FailedB))
	for _, b := range rep.FailedB {
		s += fmt.Sprintf("\n  batch %d ids %d..%d: %v", b.Index, b.FirstID, b.LastID, b.Err)
	}
	return s
}

// batchData is the parsed, embeddable form of a Batch flowing through
// the pipeline stages.
type batchData struct {
	batch   Batch
	records []wine.Record
	vectors [][]float32
	dropped []int
}

func (d batchData) report() BatchReport {
	br := BatchReport{
		Index:      d.batch.Index,
		Attempted:  len(d.batch.Raw),
		Ingested:   len(d.records),
		Dropped:    len(d.dropped),
		DroppedIDs: d.dropped,
	}
	if len(d.records) > 0 {
		ids := make([]int, len(d.records))
		for i, r := range d.records {
			ids[i] = r.ID
		}
		sort.Ints(ids)
		br.FirstID, br.LastID = ids[0], ids[len(ids)-1]
	}
	return br
}
