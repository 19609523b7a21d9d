package domain

// GenerationJob is the client-side view of a server-owned long-running video
// generation operation. Only the remote service mutates it; the client holds
// the handle and polls for the done transition.
type GenerationJob struct {
	Name      string
	Done      bool
	ResultURI string
	Error     string
}

// Usable reports whether a done job carries something the client can act on.
// A done job must expose either a result reference or an error condition,
// never neither.
func (j GenerationJob) Usable() bool {
	return j.Done && (j.ResultURI != "" || j.Error != "")
}
