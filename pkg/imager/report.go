package imager

// Outcome is the result of one target: exactly one of URL or Err is set.
type Outcome struct {
	Target Target
	URL    string
	Err    error
}

// Uploaded returns a successful outcome.
func Uploaded(t Target, url string) Outcome { return Outcome{Target: t, URL: url} }

// Failed returns a failed outcome.
func Failed(t Target, err error) Outcome { return Outcome{Target: t, Err: err} }

// OK reports whether the image was uploaded.
func (o Outcome) OK() bool { return o.Err == nil }

// UploadedImage is an entry of Report.Successful.
type UploadedImage struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	NodeID string `json:"node_id,omitempty"`
}

// FailedImage is an entry of Report.Failed.
type FailedImage struct {
	Name   string `json:"name"`
	Error  string `json:"error"`
	NodeID string `json:"node_id,omitempty"`
}

// Report is the result of a batch. Every target appears in exactly one of the two lists,
// in the order its task completed.
type Report struct {
	Successful []UploadedImage `json:"successful_uploads"`
	Failed     []FailedImage   `json:"failed_uploads"`
}

// NewReport partitions outcomes. Both lists are non-nil so they encode as [] rather than null.
func NewReport(outcomes []Outcome) *Report {
	r := &Report{
		Successful: make([]UploadedImage, 0, len(outcomes)),
		Failed:     make([]FailedImage, 0),
	}
	for _, o := range outcomes {
		r.add(o)
	}
	return r
}

func (r *Report) add(o Outcome) {
	if o.OK() {
		r.Successful = append(r.Successful, UploadedImage{Name: o.Target.Name, URL: o.URL, NodeID: o.Target.NodeID})
		return
	}
	r.Failed = append(r.Failed, FailedImage{Name: o.Target.Name, Error: o.Err.Error(), NodeID: o.Target.NodeID})
}

// Total returns the number of targets in the report.
func (r *Report) Total() int { return len(r.Successful) + len(r.Failed) }
