package engine

// Alert is a notification raised by the engine. The set of alerts is closed:
// only types in this package implement it.
type Alert interface {
	// Hash returns the info hash the alert concerns, or "" for session-wide alerts.
	Hash() string
	isAlert()
}

// TorrentAdded is raised once a torrent has been added to the session.
type TorrentAdded struct {
	InfoHash string
	Name     string
}

// TorrentFinished is raised when every wanted piece has been downloaded.
type TorrentFinished struct {
	InfoHash string
	Name     string
}

// TorrentPaused is raised when the engine pauses a torrent.
type TorrentPaused struct {
	InfoHash string
}

// TorrentResumed is raised when the engine resumes a torrent.
type TorrentResumed struct {
	InfoHash string
}

// TorrentRemoved is raised after a torrent has left the session.
type TorrentRemoved struct {
	InfoHash string
}

// PeerConnected is raised when a peer connection is established.
type PeerConnected struct {
	InfoHash string
	IP       string
}

// MetadataReceived is raised when a magnet link's metadata has been resolved.
type MetadataReceived struct {
	InfoHash string
	Name     string
}

// TorrentError is raised when the engine hits an error on a torrent.
type TorrentError struct {
	InfoHash string
	Message  string
}

// StateUpdate carries status for every torrent that changed since the last
// PostTorrentUpdates call.
type StateUpdate struct {
	Statuses []Torrent
}

func (a TorrentAdded) Hash() string     { return a.InfoHash }
func (a TorrentFinished) Hash() string  { return a.InfoHash }
func (a TorrentPaused) Hash() string    { return a.InfoHash }
func (a TorrentResumed) Hash() string   { return a.InfoHash }
func (a TorrentRemoved) Hash() string   { return a.InfoHash }
func (a PeerConnected) Hash() string    { return a.InfoHash }
func (a MetadataReceived) Hash() string { return a.InfoHash }
func (a TorrentError) Hash() string     { return a.InfoHash }
func (StateUpdate) Hash() string        { return "" }

func (TorrentAdded) isAlert()     {}
func (TorrentFinished) isAlert()  {}
func (TorrentPaused) isAlert()    {}
func (TorrentResumed) isAlert()   {}
func (TorrentRemoved) isAlert()   {}
func (PeerConnected) isAlert()    {}
func (MetadataReceived) isAlert() {}
func (TorrentError) isAlert()     {}
func (StateUpdate) isAlert()      {}
