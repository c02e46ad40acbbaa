package labeling

import (
	"github.com/cyclopcam/videolabel/pkg/annotate"
)

// State is what a client renders
// SYNC-LABELING-SESSION-STATE
type State struct {
	ID    string `json:"id"`
	Video string `json:"video"`
	Frame string `json:"frame"`
	annotate.State
	Classes        []string `json:"classes"`
	Analysing      bool     `json:"analysing"`
	Saving         bool     `json:"saving"`
	SaveSuccess    bool     `json:"saveSuccess"`
	LoadingMask    bool     `json:"loadingMask"`
	LoadingClasses bool     `json:"loadingClasses"`
	AnalysisError  string   `json:"analysisError"`
	SaveError      string   `json:"saveError"`
	ClassesError   string   `json:"classesError"`
}

func (s *Session) state() State {
	classes := s.classes
	if classes == nil {
		classes = []string{}
	}
	return State{
		ID:             s.ID,
		Video:          s.key.Video,
		Frame:          s.key.Frame,
		State:          s.engine.State(),
		Classes:        classes,
		Analysing:      s.analysing,
		Saving:         s.saving,
		SaveSuccess:    s.saveSuccess,
		LoadingMask:    s.loadingMask,
		LoadingClasses: s.loadingClasses,
		AnalysisError:  s.analysisError,
		SaveError:      s.saveError,
		ClassesError:   s.classesError,
	}
}
