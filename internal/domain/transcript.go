package domain

type TranscriptResult struct {
	Raw      string
	Polished string
	Language string
}

func (r TranscriptResult) Enhanced() bool {
	return r.Polished != ""
}

// Text is the text that should be sent back: the polished transcript when
// enhancement succeeded, the raw one otherwise.
func (r TranscriptResult) Text() string {
	if r.Polished != "" {
		return r.Polished
	}
	return r.Raw
}
