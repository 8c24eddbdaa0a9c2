package api

// DaemonStatus is the runtime summary served by /api/status.
type DaemonStatus struct {
	Running       bool   `json:"running"`
	PID           int    `json:"pid"`
	DatabasePath  string `json:"databasePath"`
	LockFilePath  string `json:"lockFilePath"`
	SchemaVersion string `json:"schemaVersion,omitempty"`
	StartedAt     string `json:"startedAt,omitempty"`
	Uptime        string `json:"uptime,omitempty"`
	Libraries     int    `json:"libraries"`
	SocketClients int    `json:"socketClients"`
	ShelfViews    int    `json:"shelfViews"`
	AuthEnabled   bool   `json:"authEnabled"`
}
