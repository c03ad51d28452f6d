package v1

import "time"

/*
This files contains request/response structs for all endpoints and messages. The structs have to be changed in
backward-compatible way and when it's not possible, copied to `v2` and changed there.
*/

//SnapshotState One side of a document change.
type SnapshotState struct {
	Exists     bool                   `json:"exists"`
	Data       map[string]interface{} `json:"data"`
	UpdateTime time.Time              `json:"updateTime"`
}

//PreviewHistoryDiffRequest Request for PreviewHistoryDiff function
type PreviewHistoryDiffRequest struct {
	Path   string        `json:"path" validate:"required"`
	Before SnapshotState `json:"before"`
	After  SnapshotState `json:"after"`
}

//HistoryRecordedMessage Message published after a history record has been written.
type HistoryRecordedMessage struct {
	Path        string    `json:"path"`
	HistoryPath string    `json:"historyPath"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	Fields      []string  `json:"fields"`
}
