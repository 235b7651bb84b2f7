package analysis

import "errors"

var (
	// ErrAnalysisInProgress means another analysis already holds the
	// per-document lock.
	ErrAnalysisInProgress = errors.New("analysis already in progress")
	// ErrAnalysisFailed means the analysis could not complete and the
	// document was removed.
	ErrAnalysisFailed = errors.New("analysis failed")
)
