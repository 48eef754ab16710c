package model

import (
	"errors"

	"go-fileops/pkg/fserr"
)

// Outcome is the result of one batch item. Index always equals the item's position
// in the input.
type Outcome struct {
	Index       int        `json:"index"`
	Path        string     `json:"path"`
	Success     bool       `json:"success"`
	Skipped     bool       `json:"skipped,omitempty"`
	Destination string     `json:"destination,omitempty"`
	RecordID    string     `json:"record_id,omitempty"`
	Bytes       int64      `json:"bytes,omitempty"`
	Kind        fserr.Kind `json:"kind,omitempty"`
	Message     string     `json:"message,omitempty"`
}

func Succeeded(index int, path string) Outcome {
	return Outcome{Index: index, Path: path, Success: true}
}

func Failed(index int, path string, err error) Outcome {
	outcome := Outcome{Index: index, Path: path, Kind: fserr.KindOf(err)}
	if err != nil {
		outcome.Message = err.Error()
	}

	var classified *fserr.Error
	if errors.As(err, &classified) && classified.Path != "" && path == "" {
		outcome.Path = classified.Path
	}

	return outcome
}

func NotStarted(index int, path string) Outcome {
	return Outcome{
		Index:   index,
		Path:    path,
		Kind:    fserr.Cancelled,
		Message: "cancelled before the item started",
	}
}

type BatchSummary struct {
	Total     int   `json:"total"`
	Succeeded int   `json:"succeeded"`
	Skipped   int   `json:"skipped"`
	Failed    int   `json:"failed"`
	Cancelled int   `json:"cancelled"`
	Bytes     int64 `json:"bytes"`
}

type BatchResult struct {
	Items   []Outcome    `json:"items"`
	Summary BatchSummary `json:"summary"`
}

func NewBatchResult(items []Outcome) BatchResult {
	if items == nil {
		items = []Outcome{}
	}

	summary := BatchSummary{Total: len(items)}
	for _, item := range items {
		summary.Bytes += item.Bytes
		switch {
		case item.Success && item.Skipped:
			summary.Succeeded++
			summary.Skipped++
		case item.Success:
			summary.Succeeded++
		case item.Kind == fserr.Cancelled:
			summary.Cancelled++
		default:
			summary.Failed++
		}
	}

	return BatchResult{Items: items, Summary: summary}
}
