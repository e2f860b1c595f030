package process

// The orchestrator pushes SyncEvents while a run is going, so any front end
// (CLI, GUI) can show progress without the engine knowing about it. The
// channel is closed when the run finishes; the consumer must keep draining
// until then.

type EventType string

const (
	EventStageStarted    EventType = "stageStarted"
	EventStageCompleted  EventType = "stageCompleted"
	EventGameStarted     EventType = "gameStarted"
	EventAssetDownloaded EventType = "assetDownloaded"
	EventScriptWritten   EventType = "scriptWritten"
	EventGameFailed      EventType = "gameFailed"
	EventGameCompleted   EventType = "gameCompleted"
)

// Stage names used with stage events
const (
	StageFetch    = "fetch"
	StagePlan     = "plan"
	StageRemove   = "remove"
	StageDownload = "download"
	StageGamelist = "gamelist"
	StageSave     = "save"
)

type SyncEvent struct {
	Type      EventType
	Stage     string
	GameId    string
	GameTitle string
	AssetKind string
	Reason    string
	// games processed so far / total games in the parallel window
	Current int
	Total   int
	// filled on stageCompleted
	Counts map[string]int
}

func (o *Orchestrator) emit(event SyncEvent) {
	if o.events != nil {
		o.events <- event
	}
}

func (o *Orchestrator) emitStage(eventType EventType, stage string, counts map[string]int) {
	o.emit(SyncEvent{Type: eventType, Stage: stage, Counts: counts})
}
