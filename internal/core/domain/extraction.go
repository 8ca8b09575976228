package domain

import "strings"

type JobStatus string

const (
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusSucceeded  JobStatus = "SUCCEEDED"
	JobStatusFailed     JobStatus = "FAILED"
)

func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

type BlockType string

const (
	BlockTypePage BlockType = "PAGE"
	BlockTypeLine BlockType = "LINE"
	BlockTypeWord BlockType = "WORD"
)

type Block struct {
	Type BlockType `json:"type"`
	Text string    `json:"text"`
}

// ExtractionJob is a snapshot of an asynchronous text extraction job.
type ExtractionJob struct {
	ID      string    `json:"id"`
	Status  JobStatus `json:"status"`
	Message string    `json:"message,omitempty"`
	Blocks  []Block   `json:"blocks,omitempty"`
}

// LineText joins LINE blocks with newlines in engine order.
func (j ExtractionJob) LineText() string {
	lines := make([]string, 0, len(j.Blocks))
	for _, b := range j.Blocks {
		if b.Type == BlockTypeLine {
			lines = append(lines, b.Text)
		}
	}
	return strings.Join(lines, "\n")
}
